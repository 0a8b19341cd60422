package issue

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/shida/core"
	"github.com/trezcool/shida/core/user"
)

var (
	// errors
	ErrNotFound           = errors.New("issue not found")
	ErrCommentNotFound    = errors.New("comment not found")
	ErrAttachmentNotFound = errors.New("attachment not found")
	ErrTemplateNotFound   = errors.New("template not found")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrFeedbackExists     = errors.New("feedback has already been submitted for this issue")
	ErrIssueNotResolved   = errors.New("feedback can only be submitted for resolved issues")

	// history actions
	actionCreated = "created"
)

type (
	// Notifier fans out issue events to interested users.
	Notifier interface {
		IssueCreated(iss Issue)
		IssueStatusChanged(iss Issue, oldStatus string)
		IssueAssigned(iss Issue)
		CommentAdded(iss Issue, cmt Comment)
		FeedbackAdded(iss Issue, fb Feedback)
	}

	Repository interface {
		CreateIssue(ctx context.Context, iss Issue) (Issue, error)
		QueryIssues(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Issue, error)
		GetIssue(ctx context.Context, id string) (Issue, error)
		UpdateIssue(ctx context.Context, iss Issue) (Issue, error)
		DeleteIssuesByID(ctx context.Context, ids ...string) error

		CreateComment(ctx context.Context, cmt Comment) (Comment, error)
		QueryComments(ctx context.Context, issueID string) ([]Comment, error)
		GetComment(ctx context.Context, id string) (Comment, error)
		UpdateComment(ctx context.Context, cmt Comment) (Comment, error)
		DeleteComment(ctx context.Context, id string) error

		CreateFeedback(ctx context.Context, fb Feedback) (Feedback, error)
		GetIssueFeedback(ctx context.Context, issueID string) (Feedback, error)

		CreateHistoryEntry(ctx context.Context, entry HistoryEntry) (HistoryEntry, error)
		QueryHistory(ctx context.Context, issueID string) ([]HistoryEntry, error)

		CreateAttachment(ctx context.Context, att Attachment) (Attachment, error)
		QueryAttachments(ctx context.Context, issueID string) ([]Attachment, error)
		GetAttachment(ctx context.Context, id string) (Attachment, error)
		DeleteAttachment(ctx context.Context, id string) error

		CreateTemplate(ctx context.Context, tpl Template) (Template, error)
		QueryTemplates(ctx context.Context, filter *TemplateFilter) ([]Template, error)
		GetTemplate(ctx context.Context, id string) (Template, error)
		UpdateTemplate(ctx context.Context, tpl Template) (Template, error)
		DeleteTemplate(ctx context.Context, id string) error
	}

	Service interface {
		Create(actor user.User, ni NewIssue) (Issue, error)
		Query(actor user.User, filter *QueryFilter, ordering ...core.DBOrdering) ([]Issue, error)
		QueryOverdue(actor user.User) ([]Issue, error)
		GetByID(actor user.User, id string) (Issue, error)
		GetDetail(actor user.User, id string) (Detail, error)
		Update(actor user.User, id string, ui UpdateIssue) (Issue, error)
		Delete(ids ...string) error
		Stats(actor user.User) (Stats, error)

		AddComment(actor user.User, issueID string, nc NewComment) (Comment, error)
		Comments(actor user.User, issueID string) ([]Comment, error)
		UpdateComment(actor user.User, id string, uc UpdateComment) (Comment, error)
		DeleteComment(actor user.User, id string) error

		AddFeedback(actor user.User, issueID string, nf NewFeedback) (Feedback, error)

		History(actor user.User, issueID string) ([]HistoryEntry, error)

		AddAttachment(actor user.User, issueID, filename string, content io.Reader) (Attachment, error)
		Attachments(actor user.User, issueID string) ([]Attachment, error)
		OpenAttachment(actor user.User, id string) (Attachment, io.ReadCloser, error)
		DeleteAttachment(actor user.User, id string) error

		CreateTemplate(actor user.User, nt NewTemplate) (Template, error)
		Templates(filter *TemplateFilter) ([]Template, error)
		GetTemplate(id string) (Template, error)
		UpdateTemplate(actor user.User, id string, ut UpdateTemplate) (Template, error)
		DeleteTemplate(actor user.User, id string) error
	}

	service struct {
		repo     Repository
		notifier Notifier
		files    core.FileStorage
		conf     *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, notifier Notifier, files core.FileStorage, conf *core.Config) Service {
	return &service{
		repo:     repo,
		notifier: notifier,
		files:    files,
		conf:     conf,
	}
}

func (svc *service) Create(actor user.User, ni NewIssue) (Issue, error) {
	now := time.Now().UTC()
	iss := Issue{
		Title:       ni.Title,
		Description: ni.Description,
		Category:    ni.Category,
		Urgency:     ni.Urgency,
		Status:      StatusOpen,
		ReportedBy:  actor.ID,
		CourseID:    ni.CourseID,
		ProjectID:   ni.ProjectID,
		TaskID:      ni.TaskID,
		Cohort:      ni.Cohort,
		WeekNumber:  ni.WeekNumber,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if iss.Cohort == "" {
		iss.Cohort = actor.Cohort
	}

	iss, err := svc.repo.CreateIssue(context.Background(), iss)
	if err != nil {
		return Issue{}, err
	}

	svc.recordHistory(iss.ID, actionCreated, actor.ID)
	svc.notifier.IssueCreated(iss)
	return iss, nil
}

// Query restricts results to issues the actor may see:
// students their own, mentors their cohort, admins everything.
func (svc *service) Query(actor user.User, filter *QueryFilter, ordering ...core.DBOrdering) ([]Issue, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	filter.Clean()
	svc.restrictFilter(actor, filter)
	return svc.repo.QueryIssues(context.Background(), filter, ordering...)
}

func (svc *service) QueryOverdue(actor user.User) ([]Issue, error) {
	filter := new(QueryFilter)
	svc.restrictFilter(actor, filter)
	issues, err := svc.repo.QueryIssues(context.Background(), filter)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	overdue := make([]Issue, 0, len(issues))
	for _, iss := range issues {
		if !iss.IsResolved() && iss.IsOverdue(svc.conf, now) {
			overdue = append(overdue, iss)
		}
	}
	return overdue, nil
}

func (svc *service) restrictFilter(actor user.User, filter *QueryFilter) {
	switch {
	case actor.IsAdmin():
	case actor.IsMentor():
		filter.Cohort = actor.Cohort
	default:
		filter.ReportedBy = actor.ID
	}
}

// GetByID masks issues outside the actor's visibility as not found.
func (svc *service) GetByID(actor user.User, id string) (Issue, error) {
	iss, err := svc.repo.GetIssue(context.Background(), id)
	if err != nil {
		return Issue{}, err
	}
	if !svc.canView(actor, iss) {
		return Issue{}, ErrNotFound
	}
	return iss, nil
}

func (svc *service) GetDetail(actor user.User, id string) (Detail, error) {
	iss, err := svc.GetByID(actor, id)
	if err != nil {
		return Detail{}, err
	}

	ctx := context.Background()
	detail := Detail{Issue: iss}
	if detail.Comments, err = svc.repo.QueryComments(ctx, iss.ID); err != nil {
		return Detail{}, err
	}
	if detail.Attachments, err = svc.repo.QueryAttachments(ctx, iss.ID); err != nil {
		return Detail{}, err
	}
	if detail.History, err = svc.repo.QueryHistory(ctx, iss.ID); err != nil {
		return Detail{}, err
	}
	if fb, err := svc.repo.GetIssueFeedback(ctx, iss.ID); err == nil {
		detail.Feedback = &fb
	}
	return detail, nil
}

func (svc *service) canView(actor user.User, iss Issue) bool {
	switch {
	case actor.IsAdmin():
		return true
	case actor.IsMentor():
		return iss.Cohort == actor.Cohort
	default:
		return iss.ReportedBy == actor.ID
	}
}

// Update applies ui to the issue, stamping lifecycle timestamps and
// recording history entries for status and assignment changes.
// Students may only edit their own open issues' basic fields.
func (svc *service) Update(actor user.User, id string, ui UpdateIssue) (Issue, error) {
	iss, err := svc.GetByID(actor, id)
	if err != nil {
		return Issue{}, err
	}

	isTriager := actor.IsMentor() || actor.IsAdmin()
	if !isTriager {
		if iss.ReportedBy != actor.ID {
			return Issue{}, ErrNotFound
		}
		if !iss.IsOpen() || ui.Status != "" || ui.AssignedTo != nil {
			return Issue{}, ErrPermissionDenied
		}
	}

	oldStatus := iss.Status
	oldAssignee := iss.AssignedTo
	now := time.Now().UTC()

	if ui.Title != "" {
		iss.Title = ui.Title
	}
	if ui.Description != "" {
		iss.Description = ui.Description
	}
	if ui.Category != "" {
		iss.Category = ui.Category
	}
	if ui.Urgency != "" {
		iss.Urgency = ui.Urgency
	}
	if ui.Status != "" {
		iss.Status = ui.Status
	}
	if ui.AssignedTo != nil {
		iss.AssignedTo = *ui.AssignedTo
	}
	iss.UpdatedAt = now

	if iss.Status != oldStatus {
		if oldStatus == StatusOpen && iss.FirstResponseAt.IsZero() {
			iss.FirstResponseAt = now
		}
		if iss.IsResolved() {
			iss.ResolvedAt = now
		} else {
			iss.ResolvedAt = time.Time{} // reopened
		}
	}

	iss, err = svc.repo.UpdateIssue(context.Background(), iss)
	if err != nil {
		return Issue{}, err
	}

	if iss.Status != oldStatus {
		svc.recordHistory(iss.ID, fmt.Sprintf("status: %s -> %s", oldStatus, iss.Status), actor.ID)
		svc.notifier.IssueStatusChanged(iss, oldStatus)
	}
	if iss.AssignedTo != oldAssignee {
		svc.recordHistory(iss.ID, fmt.Sprintf("assigned to %s", iss.AssignedTo), actor.ID)
		if iss.AssignedTo != "" {
			svc.notifier.IssueAssigned(iss)
		}
	}
	return iss, nil
}

func (svc *service) Delete(ids ...string) error {
	return svc.repo.DeleteIssuesByID(context.Background(), ids...)
}

func (svc *service) Stats(actor user.User) (Stats, error) {
	filter := new(QueryFilter)
	svc.restrictFilter(actor, filter)
	issues, err := svc.repo.QueryIssues(context.Background(), filter)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		ByStatus:   make(map[string]int),
		ByCategory: make(map[string]int),
		ByUrgency:  make(map[string]int),
	}
	now := time.Now().UTC()
	var (
		frTotal, resTotal time.Duration
		frCount, resCount int
	)
	for _, iss := range issues {
		stats.Total++
		stats.ByStatus[iss.Status]++
		stats.ByCategory[iss.Category]++
		stats.ByUrgency[iss.Urgency]++
		if !iss.IsResolved() && iss.IsOverdue(svc.conf, now) {
			stats.OpenOverdue++
		}
		if !iss.FirstResponseAt.IsZero() {
			frTotal += iss.FirstResponseAt.Sub(iss.CreatedAt)
			frCount++
		}
		if !iss.ResolvedAt.IsZero() {
			resTotal += iss.ResolvedAt.Sub(iss.CreatedAt)
			resCount++
		}
	}
	if frCount > 0 {
		stats.AvgFirstResponse = core.Duration(frTotal / time.Duration(frCount))
	}
	if resCount > 0 {
		stats.AvgResolution = core.Duration(resTotal / time.Duration(resCount))
	}
	return stats, nil
}

// Comments

func (svc *service) AddComment(actor user.User, issueID string, nc NewComment) (Comment, error) {
	iss, err := svc.GetByID(actor, issueID)
	if err != nil {
		return Comment{}, err
	}

	now := time.Now().UTC()
	cmt, err := svc.repo.CreateComment(context.Background(), Comment{
		IssueID:   iss.ID,
		UserID:    actor.ID,
		Content:   nc.Content,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Comment{}, err
	}

	svc.notifier.CommentAdded(iss, cmt)
	return cmt, nil
}

func (svc *service) Comments(actor user.User, issueID string) ([]Comment, error) {
	if _, err := svc.GetByID(actor, issueID); err != nil {
		return nil, err
	}
	return svc.repo.QueryComments(context.Background(), issueID)
}

func (svc *service) UpdateComment(actor user.User, id string, uc UpdateComment) (Comment, error) {
	cmt, err := svc.repo.GetComment(context.Background(), id)
	if err != nil {
		return Comment{}, err
	}
	if cmt.UserID != actor.ID && !(actor.IsMentor() || actor.IsAdmin()) {
		return Comment{}, ErrPermissionDenied
	}
	cmt.Content = uc.Content
	cmt.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateComment(context.Background(), cmt)
}

func (svc *service) DeleteComment(actor user.User, id string) error {
	cmt, err := svc.repo.GetComment(context.Background(), id)
	if err != nil {
		return err
	}
	if cmt.UserID != actor.ID && !(actor.IsMentor() || actor.IsAdmin()) {
		return ErrPermissionDenied
	}
	return svc.repo.DeleteComment(context.Background(), id)
}

// Feedback

// AddFeedback accepts feedback from the reporter of a resolved issue, once.
func (svc *service) AddFeedback(actor user.User, issueID string, nf NewFeedback) (Feedback, error) {
	iss, err := svc.GetByID(actor, issueID)
	if err != nil {
		return Feedback{}, err
	}
	if iss.ReportedBy != actor.ID {
		return Feedback{}, ErrPermissionDenied
	}
	if !iss.IsResolved() {
		return Feedback{}, core.NewValidationError(ErrIssueNotResolved)
	}
	if _, err := svc.repo.GetIssueFeedback(context.Background(), iss.ID); err == nil {
		return Feedback{}, core.NewValidationError(ErrFeedbackExists)
	}

	fb, err := svc.repo.CreateFeedback(context.Background(), Feedback{
		IssueID:   iss.ID,
		Rating:    nf.Rating,
		Comment:   nf.Comment,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return Feedback{}, err
	}

	svc.notifier.FeedbackAdded(iss, fb)
	return fb, nil
}

// History

func (svc *service) History(actor user.User, issueID string) ([]HistoryEntry, error) {
	if _, err := svc.GetByID(actor, issueID); err != nil {
		return nil, err
	}
	return svc.repo.QueryHistory(context.Background(), issueID)
}

func (svc *service) recordHistory(issueID, action, actorID string) {
	_, _ = svc.repo.CreateHistoryEntry(context.Background(), HistoryEntry{
		IssueID:     issueID,
		Action:      action,
		PerformedBy: actorID,
		Timestamp:   time.Now().UTC(),
	})
}

// Attachments

// AddAttachment stores the uploaded content under a sanitized unique name and
// enforces the configured size and content type limits. The content type is
// sniffed from the content itself; the client-declared type is spoofable.
func (svc *service) AddAttachment(actor user.User, issueID, filename string, content io.Reader) (Attachment, error) {
	iss, err := svc.GetByID(actor, issueID)
	if err != nil {
		return Attachment{}, err
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(content, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return Attachment{}, errors.Wrap(err, "reading attachment content")
	}
	head = head[:n]

	contentType := sniffContentType(head)
	if !svc.allowedContentType(contentType) {
		return Attachment{}, core.NewValidationError(nil, core.FieldError{
			Field: "file", Error: fmt.Sprintf("file type %q is not allowed", contentType),
		})
	}

	// stop reading past the limit
	limited := io.LimitReader(io.MultiReader(bytes.NewReader(head), content), svc.conf.Upload.MaxSize+1)

	ext := path.Ext(filename)
	stored := fmt.Sprintf("%s-%s%s", core.Slugify(filename[:len(filename)-len(ext)]), uuid.New().String()[:8], ext)
	storedPath := path.Join("attachments", "issues", iss.ID, stored)

	size, err := svc.files.Save(storedPath, limited)
	if err != nil {
		return Attachment{}, errors.Wrap(err, "saving attachment")
	}
	if size > svc.conf.Upload.MaxSize {
		_ = svc.files.Remove(storedPath)
		return Attachment{}, core.NewValidationError(nil, core.FieldError{
			Field: "file", Error: fmt.Sprintf("file exceeds the %dMB limit", svc.conf.Upload.MaxSize>>20),
		})
	}

	att, err := svc.repo.CreateAttachment(context.Background(), Attachment{
		IssueID:     iss.ID,
		FileName:    filename,
		Path:        storedPath,
		ContentType: contentType,
		Size:        size,
		UploadedBy:  actor.ID,
		UploadedAt:  time.Now().UTC(),
	})
	if err != nil {
		_ = svc.files.Remove(storedPath)
		return Attachment{}, err
	}
	return att, nil
}

// sniffContentType detects the media type from the first content bytes,
// dropping any "; charset=..." parameter.
func sniffContentType(head []byte) string {
	ct := http.DetectContentType(head)
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}

func (svc *service) allowedContentType(ct string) bool {
	for _, allowed := range svc.conf.Upload.AllowedTypes {
		if ct == allowed {
			return true
		}
	}
	return false
}

func (svc *service) Attachments(actor user.User, issueID string) ([]Attachment, error) {
	if _, err := svc.GetByID(actor, issueID); err != nil {
		return nil, err
	}
	return svc.repo.QueryAttachments(context.Background(), issueID)
}

func (svc *service) OpenAttachment(actor user.User, id string) (Attachment, io.ReadCloser, error) {
	att, err := svc.repo.GetAttachment(context.Background(), id)
	if err != nil {
		return Attachment{}, nil, err
	}
	if _, err := svc.GetByID(actor, att.IssueID); err != nil {
		return Attachment{}, nil, ErrAttachmentNotFound
	}
	rc, err := svc.files.Open(att.Path)
	if err != nil {
		return Attachment{}, nil, errors.Wrap(err, "opening attachment")
	}
	return att, rc, nil
}

func (svc *service) DeleteAttachment(actor user.User, id string) error {
	att, err := svc.repo.GetAttachment(context.Background(), id)
	if err != nil {
		return err
	}
	if _, err := svc.GetByID(actor, att.IssueID); err != nil {
		return ErrAttachmentNotFound
	}
	if att.UploadedBy != actor.ID && !(actor.IsMentor() || actor.IsAdmin()) {
		return ErrPermissionDenied
	}
	if err := svc.repo.DeleteAttachment(context.Background(), id); err != nil {
		return err
	}
	_ = svc.files.Remove(att.Path)
	return nil
}

// Templates

func (svc *service) CreateTemplate(actor user.User, nt NewTemplate) (Template, error) {
	if !(actor.IsMentor() || actor.IsAdmin()) {
		return Template{}, ErrPermissionDenied
	}
	now := time.Now().UTC()
	return svc.repo.CreateTemplate(context.Background(), Template{
		Title:               nt.Title,
		DescriptionTemplate: nt.DescriptionTemplate,
		Category:            nt.Category,
		CreatedBy:           actor.ID,
		CreatedAt:           now,
		UpdatedAt:           now,
	})
}

func (svc *service) Templates(filter *TemplateFilter) ([]Template, error) {
	return svc.repo.QueryTemplates(context.Background(), filter)
}

func (svc *service) GetTemplate(id string) (Template, error) {
	return svc.repo.GetTemplate(context.Background(), id)
}

func (svc *service) UpdateTemplate(actor user.User, id string, ut UpdateTemplate) (Template, error) {
	tpl, err := svc.repo.GetTemplate(context.Background(), id)
	if err != nil {
		return Template{}, err
	}
	if tpl.CreatedBy != actor.ID && !(actor.IsMentor() || actor.IsAdmin()) {
		return Template{}, ErrPermissionDenied
	}
	if ut.Title != "" {
		tpl.Title = ut.Title
	}
	if ut.DescriptionTemplate != "" {
		tpl.DescriptionTemplate = ut.DescriptionTemplate
	}
	if ut.Category != "" {
		tpl.Category = ut.Category
	}
	tpl.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateTemplate(context.Background(), tpl)
}

func (svc *service) DeleteTemplate(actor user.User, id string) error {
	tpl, err := svc.repo.GetTemplate(context.Background(), id)
	if err != nil {
		return err
	}
	if tpl.CreatedBy != actor.ID && !(actor.IsMentor() || actor.IsAdmin()) {
		return ErrPermissionDenied
	}
	return svc.repo.DeleteTemplate(context.Background(), id)
}
