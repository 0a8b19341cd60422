package notification

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shida/core"
	"github.com/trezcool/shida/core/issue"
	"github.com/trezcool/shida/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("notification not found")
)

type (
	Repository interface {
		CreateNotification(ctx context.Context, notif Notification) (Notification, error)
		QueryNotifications(ctx context.Context, userID string, filter *QueryFilter) ([]Notification, error)
		GetNotification(ctx context.Context, id string) (Notification, error)
		MarkNotificationRead(ctx context.Context, id string) (Notification, error)
		MarkAllNotificationsRead(ctx context.Context, userID string) (int, error)
		CountUnreadNotifications(ctx context.Context, userID string) (int, error)
	}

	Service interface {
		issue.Notifier

		Query(actor user.User, filter *QueryFilter) ([]Notification, error)
		GetByID(actor user.User, id string) (Notification, error)
		MarkRead(actor user.User, id string) (Notification, error)
		MarkAllRead(actor user.User) (int, error)
		UnreadCount(actor user.User) (int, error)
	}

	service struct {
		repo    Repository
		usrSvc  user.Service
		mailSvc core.EmailService
		conf    *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, usrSvc user.Service, mailSvc core.EmailService, conf *core.Config) Service {
	return &service{
		repo:    repo,
		usrSvc:  usrSvc,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

// Inbox

func (svc *service) Query(actor user.User, filter *QueryFilter) ([]Notification, error) {
	return svc.repo.QueryNotifications(context.Background(), actor.ID, filter)
}

// GetByID masks other users' notifications as not found.
func (svc *service) GetByID(actor user.User, id string) (Notification, error) {
	notif, err := svc.repo.GetNotification(context.Background(), id)
	if err != nil {
		return Notification{}, err
	}
	if notif.UserID != actor.ID {
		return Notification{}, ErrNotFound
	}
	return notif, nil
}

func (svc *service) MarkRead(actor user.User, id string) (Notification, error) {
	if _, err := svc.GetByID(actor, id); err != nil {
		return Notification{}, err
	}
	return svc.repo.MarkNotificationRead(context.Background(), id)
}

func (svc *service) MarkAllRead(actor user.User) (int, error) {
	return svc.repo.MarkAllNotificationsRead(context.Background(), actor.ID)
}

func (svc *service) UnreadCount(actor user.User) (int, error) {
	return svc.repo.CountUnreadNotifications(context.Background(), actor.ID)
}

// Fan-out

func (svc *service) IssueCreated(iss issue.Issue) {
	msg := fmt.Sprintf("New issue reported: %s", iss.Title)
	svc.notify(svc.cohortTriagers(iss.Cohort), iss, msg, TypeIssueCreated)
}

func (svc *service) IssueStatusChanged(iss issue.Issue, oldStatus string) {
	recipients := svc.users(iss.ReportedBy)
	msg := fmt.Sprintf("Issue %q status changed from %s to %s",
		iss.Title, issue.StatusDisplay(oldStatus), issue.StatusDisplay(iss.Status))
	svc.notify(recipients, iss, msg, TypeIssueUpdated)

	if iss.IsResolved() {
		resolvedMsg := fmt.Sprintf("Issue resolved: %s", iss.Title)
		svc.notify(svc.cohortTriagers(iss.Cohort), iss, resolvedMsg, TypeIssueResolved)
	}
}

func (svc *service) IssueAssigned(iss issue.Issue) {
	msg := fmt.Sprintf("You have been assigned issue: %s", iss.Title)
	svc.notify(svc.users(iss.AssignedTo), iss, msg, TypeIssueAssigned)
}

func (svc *service) CommentAdded(iss issue.Issue, cmt issue.Comment) {
	ids := make([]string, 0, 2)
	if iss.ReportedBy != cmt.UserID {
		ids = append(ids, iss.ReportedBy)
	}
	if iss.AssignedTo != "" && iss.AssignedTo != cmt.UserID && iss.AssignedTo != iss.ReportedBy {
		ids = append(ids, iss.AssignedTo)
	}
	msg := fmt.Sprintf("New comment on issue: %s", iss.Title)
	svc.notify(svc.users(ids...), iss, msg, TypeCommentAdded)
}

func (svc *service) FeedbackAdded(iss issue.Issue, fb issue.Feedback) {
	recipients := svc.cohortMentors(iss.Cohort)
	if iss.AssignedTo != "" {
		recipients = append(recipients, svc.users(iss.AssignedTo)...)
	}
	msg := fmt.Sprintf("Feedback received on issue %q: %d/5", iss.Title, fb.Rating)
	svc.notify(dedupe(recipients), iss, msg, TypeFeedbackAdded)
}

// notify stores a notification per recipient and emails a copy.
func (svc *service) notify(recipients []user.User, iss issue.Issue, msg, typ string) {
	ctx := context.Background()
	for _, rcp := range recipients {
		_, err := svc.repo.CreateNotification(ctx, Notification{
			UserID:    rcp.ID,
			IssueID:   iss.ID,
			Message:   msg,
			Type:      typ,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			continue
		}
		if rcp.Email != "" {
			svc.mailSvc.SendMessages(
				&core.EmailMessage{
					To:           []mail.Address{{Name: rcp.Name, Address: rcp.Email}},
					Subject:      msg,
					TemplateName: "issue-notification",
					TemplateData: map[string]interface{}{
						"Name":    rcp.Name,
						"Message": msg,
						"IssueID": iss.ID,
					},
				},
			)
		}
	}
}

// cohortTriagers returns the cohort's mentors plus all admins, deduped.
func (svc *service) cohortTriagers(cohort string) []user.User {
	admins, err := svc.usrSvc.Query(&user.QueryFilter{Roles: user.AdminRoles})
	if err != nil {
		admins = nil
	}
	return dedupe(append(svc.cohortMentors(cohort), admins...))
}

func (svc *service) cohortMentors(cohort string) []user.User {
	mentors, err := svc.usrSvc.Query(&user.QueryFilter{Roles: user.MentorRoles, Cohort: cohort})
	if err != nil {
		return nil
	}
	return mentors
}

func (svc *service) users(ids ...string) []user.User {
	users := make([]user.User, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if usr, err := svc.usrSvc.GetByID(id); err == nil {
			users = append(users, usr)
		}
	}
	return users
}

func dedupe(users []user.User) []user.User {
	seen := make(map[string]struct{}, len(users))
	out := make([]user.User, 0, len(users))
	for _, usr := range users {
		if _, ok := seen[usr.ID]; ok {
			continue
		}
		seen[usr.ID] = struct{}{}
		out = append(out, usr)
	}
	return out
}
