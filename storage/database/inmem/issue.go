package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/shida/core"
	"github.com/trezcool/shida/core/issue"
)

type issueRepository struct {
	db *DB
}

var _ issue.Repository = (*issueRepository)(nil) // interface compliance check

func NewIssueRepository(db *DB) *issueRepository {
	return &issueRepository{db: db}
}

// Issues

func (repo *issueRepository) CreateIssue(_ context.Context, iss issue.Issue) (issue.Issue, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	iss.ID = uuid.New().String()
	repo.db.issues[iss.ID] = &iss
	return iss, nil
}

func (repo *issueRepository) QueryIssues(_ context.Context, filter *issue.QueryFilter, ordering ...core.DBOrdering) ([]issue.Issue, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	issues := make([]issue.Issue, 0, len(repo.db.issues))
	for _, iss := range repo.db.issues {
		if filter != nil && !matchIssue(*iss, filter) {
			continue
		}
		issues = append(issues, *iss)
	}
	sortIssues(issues, ordering)
	return issues, nil
}

func matchIssue(iss issue.Issue, filter *issue.QueryFilter) bool {
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		if !(strings.Contains(strings.ToLower(iss.Title), s) ||
			strings.Contains(strings.ToLower(iss.Description), s)) {
			return false
		}
	}
	if filter.Status != "" && iss.Status != filter.Status {
		return false
	}
	if filter.Category != "" && iss.Category != filter.Category {
		return false
	}
	if filter.Urgency != "" && iss.Urgency != filter.Urgency {
		return false
	}
	if filter.CourseID != "" && iss.CourseID != filter.CourseID {
		return false
	}
	if filter.ProjectID != "" && iss.ProjectID != filter.ProjectID {
		return false
	}
	if filter.TaskID != "" && iss.TaskID != filter.TaskID {
		return false
	}
	if filter.Cohort != "" && iss.Cohort != filter.Cohort {
		return false
	}
	if filter.WeekNumber > 0 && iss.WeekNumber != filter.WeekNumber {
		return false
	}
	if filter.ReportedBy != "" && iss.ReportedBy != filter.ReportedBy {
		return false
	}
	if filter.AssignedTo != "" && iss.AssignedTo != filter.AssignedTo {
		return false
	}
	if !filter.CreatedFrom.IsZero() && iss.CreatedAt.Before(filter.CreatedFrom) {
		return false
	}
	if !filter.CreatedTo.IsZero() && iss.CreatedAt.After(filter.CreatedTo) {
		return false
	}
	return true
}

func sortIssues(issues []issue.Issue, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		sort.Slice(issues, func(i, j int) bool { return issues[i].CreatedAt.After(issues[j].CreatedAt) })
		return
	}
	sort.Slice(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		for _, ord := range ordering {
			var less, equal bool
			switch ord.Field {
			case "updated_at":
				less, equal = a.UpdatedAt.Before(b.UpdatedAt), a.UpdatedAt.Equal(b.UpdatedAt)
			case "status":
				less, equal = a.Status < b.Status, a.Status == b.Status
			case "urgency":
				less, equal = a.Urgency < b.Urgency, a.Urgency == b.Urgency
			default:
				less, equal = a.CreatedAt.Before(b.CreatedAt), a.CreatedAt.Equal(b.CreatedAt)
			}
			if equal {
				continue // tie, defer to the next term
			}
			if !ord.Ascending {
				return !less
			}
			return less
		}
		return false
	})
}

func (repo *issueRepository) GetIssue(_ context.Context, id string) (issue.Issue, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if iss, ok := repo.db.issues[id]; ok {
		return *iss, nil
	}
	return issue.Issue{}, issue.ErrNotFound
}

func (repo *issueRepository) UpdateIssue(_ context.Context, iss issue.Issue) (issue.Issue, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.issues[iss.ID]; !ok {
		return issue.Issue{}, issue.ErrNotFound
	}
	repo.db.issues[iss.ID] = &iss
	return iss, nil
}

func (repo *issueRepository) DeleteIssuesByID(_ context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, id := range ids {
		delete(repo.db.issues, id)
	}
	return nil
}

// Comments

func (repo *issueRepository) CreateComment(_ context.Context, cmt issue.Comment) (issue.Comment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cmt.ID = uuid.New().String()
	repo.db.comments[cmt.ID] = &cmt
	return cmt, nil
}

func (repo *issueRepository) QueryComments(_ context.Context, issueID string) ([]issue.Comment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	comments := make([]issue.Comment, 0)
	for _, cmt := range repo.db.comments {
		if cmt.IssueID == issueID {
			comments = append(comments, *cmt)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].CreatedAt.Before(comments[j].CreatedAt) })
	return comments, nil
}

func (repo *issueRepository) GetComment(_ context.Context, id string) (issue.Comment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if cmt, ok := repo.db.comments[id]; ok {
		return *cmt, nil
	}
	return issue.Comment{}, issue.ErrCommentNotFound
}

func (repo *issueRepository) UpdateComment(_ context.Context, cmt issue.Comment) (issue.Comment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.comments[cmt.ID]; !ok {
		return issue.Comment{}, issue.ErrCommentNotFound
	}
	repo.db.comments[cmt.ID] = &cmt
	return cmt, nil
}

func (repo *issueRepository) DeleteComment(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.comments, id)
	return nil
}

// Feedback

func (repo *issueRepository) CreateFeedback(_ context.Context, fb issue.Feedback) (issue.Feedback, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	fb.ID = uuid.New().String()
	repo.db.feedbacks[fb.ID] = &fb
	return fb, nil
}

func (repo *issueRepository) GetIssueFeedback(_ context.Context, issueID string) (issue.Feedback, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, fb := range repo.db.feedbacks {
		if fb.IssueID == issueID {
			return *fb, nil
		}
	}
	return issue.Feedback{}, issue.ErrNotFound
}

// History

func (repo *issueRepository) CreateHistoryEntry(_ context.Context, entry issue.HistoryEntry) (issue.HistoryEntry, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	entry.ID = uuid.New().String()
	repo.db.history[entry.ID] = &entry
	return entry, nil
}

func (repo *issueRepository) QueryHistory(_ context.Context, issueID string) ([]issue.HistoryEntry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	entries := make([]issue.HistoryEntry, 0)
	for _, entry := range repo.db.history {
		if entry.IssueID == issueID {
			entries = append(entries, *entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Timestamp.Before(entries[j].Timestamp) })
	return entries, nil
}

// Attachments

func (repo *issueRepository) CreateAttachment(_ context.Context, att issue.Attachment) (issue.Attachment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	att.ID = uuid.New().String()
	repo.db.attachments[att.ID] = &att
	return att, nil
}

func (repo *issueRepository) QueryAttachments(_ context.Context, issueID string) ([]issue.Attachment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	attachments := make([]issue.Attachment, 0)
	for _, att := range repo.db.attachments {
		if att.IssueID == issueID {
			attachments = append(attachments, *att)
		}
	}
	sort.Slice(attachments, func(i, j int) bool { return attachments[i].UploadedAt.Before(attachments[j].UploadedAt) })
	return attachments, nil
}

func (repo *issueRepository) GetAttachment(_ context.Context, id string) (issue.Attachment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if att, ok := repo.db.attachments[id]; ok {
		return *att, nil
	}
	return issue.Attachment{}, issue.ErrAttachmentNotFound
}

func (repo *issueRepository) DeleteAttachment(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.attachments, id)
	return nil
}

// Templates

func (repo *issueRepository) CreateTemplate(_ context.Context, tpl issue.Template) (issue.Template, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	tpl.ID = uuid.New().String()
	repo.db.templates[tpl.ID] = &tpl
	return tpl, nil
}

func (repo *issueRepository) QueryTemplates(_ context.Context, filter *issue.TemplateFilter) ([]issue.Template, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	templates := make([]issue.Template, 0, len(repo.db.templates))
	for _, tpl := range repo.db.templates {
		if filter != nil {
			if filter.Search != "" && !strings.Contains(strings.ToLower(tpl.Title), strings.ToLower(filter.Search)) {
				continue
			}
			if filter.Category != "" && tpl.Category != filter.Category {
				continue
			}
		}
		templates = append(templates, *tpl)
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].Title < templates[j].Title })
	return templates, nil
}

func (repo *issueRepository) GetTemplate(_ context.Context, id string) (issue.Template, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if tpl, ok := repo.db.templates[id]; ok {
		return *tpl, nil
	}
	return issue.Template{}, issue.ErrTemplateNotFound
}

func (repo *issueRepository) UpdateTemplate(_ context.Context, tpl issue.Template) (issue.Template, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.templates[tpl.ID]; !ok {
		return issue.Template{}, issue.ErrTemplateNotFound
	}
	repo.db.templates[tpl.ID] = &tpl
	return tpl, nil
}

func (repo *issueRepository) DeleteTemplate(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.templates, id)
	return nil
}
