package sqlxrepos

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shida/core"
	"github.com/trezcool/shida/core/issue"
)

type issueRepository struct {
	db *sqlx.DB
}

var _ issue.Repository = (*issueRepository)(nil) // interface compliance check

func NewIssueRepository(db *sqlx.DB) *issueRepository {
	return &issueRepository{db: db}
}

// Issues

var issueColumns = []string{
	"id", "title", "description", "category", "urgency", "status",
	"reported_by", "assigned_to", "course_id", "project_id", "task_id",
	"cohort", "week_number", "created_at", "updated_at", "first_response_at", "resolved_at",
}

type issueRow struct {
	ID              string      `db:"id"`
	Title           string      `db:"title"`
	Description     string      `db:"description"`
	Category        string      `db:"category"`
	Urgency         string      `db:"urgency"`
	Status          string      `db:"status"`
	ReportedBy      string      `db:"reported_by"`
	AssignedTo      null.String `db:"assigned_to"`
	CourseID        string      `db:"course_id"`
	ProjectID       string      `db:"project_id"`
	TaskID          null.String `db:"task_id"`
	Cohort          string      `db:"cohort"`
	WeekNumber      int         `db:"week_number"`
	CreatedAt       null.Time   `db:"created_at"`
	UpdatedAt       null.Time   `db:"updated_at"`
	FirstResponseAt null.Time   `db:"first_response_at"`
	ResolvedAt      null.Time   `db:"resolved_at"`
}

func (r issueRow) unpack() issue.Issue {
	return issue.Issue{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		Category:        r.Category,
		Urgency:         r.Urgency,
		Status:          r.Status,
		ReportedBy:      r.ReportedBy,
		AssignedTo:      r.AssignedTo.String,
		CourseID:        r.CourseID,
		ProjectID:       r.ProjectID,
		TaskID:          r.TaskID.String,
		Cohort:          r.Cohort,
		WeekNumber:      r.WeekNumber,
		CreatedAt:       r.CreatedAt.Time,
		UpdatedAt:       r.UpdatedAt.Time,
		FirstResponseAt: r.FirstResponseAt.Time,
		ResolvedAt:      r.ResolvedAt.Time,
	}
}

func packIssue(iss issue.Issue) issueRow {
	return issueRow{
		ID:              iss.ID,
		Title:           iss.Title,
		Description:     iss.Description,
		Category:        iss.Category,
		Urgency:         iss.Urgency,
		Status:          iss.Status,
		ReportedBy:      iss.ReportedBy,
		AssignedTo:      null.NewString(iss.AssignedTo, iss.AssignedTo != ""),
		CourseID:        iss.CourseID,
		ProjectID:       iss.ProjectID,
		TaskID:          null.NewString(iss.TaskID, iss.TaskID != ""),
		Cohort:          iss.Cohort,
		WeekNumber:      iss.WeekNumber,
		CreatedAt:       null.NewTime(iss.CreatedAt.UTC(), !iss.CreatedAt.IsZero()),
		UpdatedAt:       null.NewTime(iss.UpdatedAt.UTC(), !iss.UpdatedAt.IsZero()),
		FirstResponseAt: null.NewTime(iss.FirstResponseAt.UTC(), !iss.FirstResponseAt.IsZero()),
		ResolvedAt:      null.NewTime(iss.ResolvedAt.UTC(), !iss.ResolvedAt.IsZero()),
	}
}

func (repo issueRepository) CreateIssue(ctx context.Context, iss issue.Issue) (issue.Issue, error) {
	iss.ID = uuid.New().String()
	row := packIssue(iss)

	query, args, err := psql.Insert("issue").
		Columns(issueColumns...).
		Values(row.ID, row.Title, row.Description, row.Category, row.Urgency, row.Status,
			row.ReportedBy, row.AssignedTo, row.CourseID, row.ProjectID, row.TaskID,
			row.Cohort, row.WeekNumber, row.CreatedAt, row.UpdatedAt, row.FirstResponseAt, row.ResolvedAt).
		ToSql()
	if err != nil {
		return issue.Issue{}, errors.Wrap(err, "building issue insert")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return issue.Issue{}, errors.Wrap(err, "inserting issue")
	}
	return iss, nil
}

func (repo issueRepository) QueryIssues(ctx context.Context, filter *issue.QueryFilter, ordering ...core.DBOrdering) ([]issue.Issue, error) {
	q := psql.Select(issueColumns...).From("issue")

	if filter != nil {
		// issues with Title or Description matching the search keyword
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			q = q.Where(sq.Or{
				sq.ILike{"title": val},
				sq.ILike{"description": val},
			})
		}
		if filter.Status != "" {
			q = q.Where(sq.Eq{"status": filter.Status})
		}
		if filter.Category != "" {
			q = q.Where(sq.Eq{"category": filter.Category})
		}
		if filter.Urgency != "" {
			q = q.Where(sq.Eq{"urgency": filter.Urgency})
		}
		if filter.CourseID != "" {
			q = q.Where(sq.Eq{"course_id": filter.CourseID})
		}
		if filter.ProjectID != "" {
			q = q.Where(sq.Eq{"project_id": filter.ProjectID})
		}
		if filter.TaskID != "" {
			q = q.Where(sq.Eq{"task_id": filter.TaskID})
		}
		if filter.Cohort != "" {
			q = q.Where(sq.Eq{"cohort": filter.Cohort})
		}
		if filter.WeekNumber > 0 {
			q = q.Where(sq.Eq{"week_number": filter.WeekNumber})
		}
		if filter.ReportedBy != "" {
			q = q.Where(sq.Eq{"reported_by": filter.ReportedBy})
		}
		if filter.AssignedTo != "" {
			q = q.Where(sq.Eq{"assigned_to": filter.AssignedTo})
		}
		if !filter.CreatedFrom.IsZero() {
			q = q.Where(sq.GtOrEq{"created_at": filter.CreatedFrom})
		}
		if !filter.CreatedTo.IsZero() {
			q = q.Where(sq.LtOrEq{"created_at": filter.CreatedTo})
		}
	}
	q = applyOrdering(q, ordering, "created_at DESC")

	query, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building issues query")
	}
	var rows []issueRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying issues")
	}
	issues := make([]issue.Issue, 0, len(rows))
	for _, row := range rows {
		issues = append(issues, row.unpack())
	}
	return issues, nil
}

func (repo issueRepository) GetIssue(ctx context.Context, id string) (issue.Issue, error) {
	query, args, err := psql.Select(issueColumns...).From("issue").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return issue.Issue{}, errors.Wrap(err, "building issue query")
	}
	var row issueRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return issue.Issue{}, issue.ErrNotFound
		}
		return issue.Issue{}, errors.Wrap(err, "getting issue")
	}
	return row.unpack(), nil
}

func (repo issueRepository) UpdateIssue(ctx context.Context, iss issue.Issue) (issue.Issue, error) {
	row := packIssue(iss)
	query, args, err := psql.Update("issue").
		Set("title", row.Title).
		Set("description", row.Description).
		Set("category", row.Category).
		Set("urgency", row.Urgency).
		Set("status", row.Status).
		Set("assigned_to", row.AssignedTo).
		Set("updated_at", row.UpdatedAt).
		Set("first_response_at", row.FirstResponseAt).
		Set("resolved_at", row.ResolvedAt).
		Where(sq.Eq{"id": iss.ID}).
		ToSql()
	if err != nil {
		return issue.Issue{}, errors.Wrap(err, "building issue update")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return issue.Issue{}, errors.Wrap(err, "updating issue")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return issue.Issue{}, issue.ErrNotFound
	}
	return iss, nil
}

func (repo issueRepository) DeleteIssuesByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := psql.Delete("issue").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building issues delete")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "deleting issues")
	}
	return nil
}

// Comments

var commentColumns = []string{"id", "issue_id", "user_id", "content", "created_at", "updated_at"}

type commentRow struct {
	ID        string    `db:"id"`
	IssueID   string    `db:"issue_id"`
	UserID    string    `db:"user_id"`
	Content   string    `db:"content"`
	CreatedAt null.Time `db:"created_at"`
	UpdatedAt null.Time `db:"updated_at"`
}

func (r commentRow) unpack() issue.Comment {
	return issue.Comment{
		ID:        r.ID,
		IssueID:   r.IssueID,
		UserID:    r.UserID,
		Content:   r.Content,
		CreatedAt: r.CreatedAt.Time,
		UpdatedAt: r.UpdatedAt.Time,
	}
}

func (repo issueRepository) CreateComment(ctx context.Context, cmt issue.Comment) (issue.Comment, error) {
	cmt.ID = uuid.New().String()
	query, args, err := psql.Insert("issue_comment").
		Columns(commentColumns...).
		Values(cmt.ID, cmt.IssueID, cmt.UserID, cmt.Content, cmt.CreatedAt.UTC(), cmt.UpdatedAt.UTC()).
		ToSql()
	if err != nil {
		return issue.Comment{}, errors.Wrap(err, "building comment insert")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return issue.Comment{}, errors.Wrap(err, "inserting comment")
	}
	return cmt, nil
}

func (repo issueRepository) QueryComments(ctx context.Context, issueID string) ([]issue.Comment, error) {
	query, args, err := psql.Select(commentColumns...).From("issue_comment").
		Where(sq.Eq{"issue_id": issueID}).OrderBy("created_at ASC").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building comments query")
	}
	var rows []commentRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying comments")
	}
	comments := make([]issue.Comment, 0, len(rows))
	for _, row := range rows {
		comments = append(comments, row.unpack())
	}
	return comments, nil
}

func (repo issueRepository) GetComment(ctx context.Context, id string) (issue.Comment, error) {
	query, args, err := psql.Select(commentColumns...).From("issue_comment").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return issue.Comment{}, errors.Wrap(err, "building comment query")
	}
	var row commentRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return issue.Comment{}, issue.ErrCommentNotFound
		}
		return issue.Comment{}, errors.Wrap(err, "getting comment")
	}
	return row.unpack(), nil
}

func (repo issueRepository) UpdateComment(ctx context.Context, cmt issue.Comment) (issue.Comment, error) {
	query, args, err := psql.Update("issue_comment").
		Set("content", cmt.Content).
		Set("updated_at", cmt.UpdatedAt.UTC()).
		Where(sq.Eq{"id": cmt.ID}).
		ToSql()
	if err != nil {
		return issue.Comment{}, errors.Wrap(err, "building comment update")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return issue.Comment{}, errors.Wrap(err, "updating comment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return issue.Comment{}, issue.ErrCommentNotFound
	}
	return cmt, nil
}

func (repo issueRepository) DeleteComment(ctx context.Context, id string) error {
	query, args, err := psql.Delete("issue_comment").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building comment delete")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "deleting comment")
	}
	return nil
}

// Feedback

type feedbackRow struct {
	ID        string    `db:"id"`
	IssueID   string    `db:"issue_id"`
	Rating    int       `db:"rating"`
	Comment   string    `db:"comment"`
	CreatedAt null.Time `db:"created_at"`
}

func (repo issueRepository) CreateFeedback(ctx context.Context, fb issue.Feedback) (issue.Feedback, error) {
	fb.ID = uuid.New().String()
	query, args, err := psql.Insert("issue_feedback").
		Columns("id", "issue_id", "rating", "comment", "created_at").
		Values(fb.ID, fb.IssueID, fb.Rating, fb.Comment, fb.CreatedAt.UTC()).
		ToSql()
	if err != nil {
		return issue.Feedback{}, errors.Wrap(err, "building feedback insert")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return issue.Feedback{}, errors.Wrap(err, "inserting feedback")
	}
	return fb, nil
}

func (repo issueRepository) GetIssueFeedback(ctx context.Context, issueID string) (issue.Feedback, error) {
	query, args, err := psql.Select("id", "issue_id", "rating", "comment", "created_at").
		From("issue_feedback").Where(sq.Eq{"issue_id": issueID}).ToSql()
	if err != nil {
		return issue.Feedback{}, errors.Wrap(err, "building feedback query")
	}
	var row feedbackRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return issue.Feedback{}, issue.ErrNotFound
		}
		return issue.Feedback{}, errors.Wrap(err, "getting feedback")
	}
	return issue.Feedback{
		ID:        row.ID,
		IssueID:   row.IssueID,
		Rating:    row.Rating,
		Comment:   row.Comment,
		CreatedAt: row.CreatedAt.Time,
	}, nil
}

// History

type historyRow struct {
	ID          string      `db:"id"`
	IssueID     string      `db:"issue_id"`
	Action      string      `db:"action"`
	PerformedBy null.String `db:"performed_by"`
	Timestamp   null.Time   `db:"timestamp"`
}

func (repo issueRepository) CreateHistoryEntry(ctx context.Context, entry issue.HistoryEntry) (issue.HistoryEntry, error) {
	entry.ID = uuid.New().String()
	query, args, err := psql.Insert("issue_history").
		Columns("id", "issue_id", "action", "performed_by", "timestamp").
		Values(entry.ID, entry.IssueID, entry.Action,
			null.NewString(entry.PerformedBy, entry.PerformedBy != ""), entry.Timestamp.UTC()).
		ToSql()
	if err != nil {
		return issue.HistoryEntry{}, errors.Wrap(err, "building history insert")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return issue.HistoryEntry{}, errors.Wrap(err, "inserting history entry")
	}
	return entry, nil
}

func (repo issueRepository) QueryHistory(ctx context.Context, issueID string) ([]issue.HistoryEntry, error) {
	query, args, err := psql.Select("id", "issue_id", "action", "performed_by", "timestamp").
		From("issue_history").Where(sq.Eq{"issue_id": issueID}).OrderBy("timestamp ASC").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building history query")
	}
	var rows []historyRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying history")
	}
	entries := make([]issue.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, issue.HistoryEntry{
			ID:          row.ID,
			IssueID:     row.IssueID,
			Action:      row.Action,
			PerformedBy: row.PerformedBy.String,
			Timestamp:   row.Timestamp.Time,
		})
	}
	return entries, nil
}

// Attachments

var attachmentColumns = []string{"id", "issue_id", "file_name", "path", "content_type", "size", "uploaded_by", "uploaded_at"}

type attachmentRow struct {
	ID          string    `db:"id"`
	IssueID     string    `db:"issue_id"`
	FileName    string    `db:"file_name"`
	Path        string    `db:"path"`
	ContentType string    `db:"content_type"`
	Size        int64     `db:"size"`
	UploadedBy  string    `db:"uploaded_by"`
	UploadedAt  null.Time `db:"uploaded_at"`
}

func (r attachmentRow) unpack() issue.Attachment {
	return issue.Attachment{
		ID:          r.ID,
		IssueID:     r.IssueID,
		FileName:    r.FileName,
		Path:        r.Path,
		ContentType: r.ContentType,
		Size:        r.Size,
		UploadedBy:  r.UploadedBy,
		UploadedAt:  r.UploadedAt.Time,
	}
}

func (repo issueRepository) CreateAttachment(ctx context.Context, att issue.Attachment) (issue.Attachment, error) {
	att.ID = uuid.New().String()
	query, args, err := psql.Insert("issue_attachment").
		Columns(attachmentColumns...).
		Values(att.ID, att.IssueID, att.FileName, att.Path, att.ContentType, att.Size,
			att.UploadedBy, att.UploadedAt.UTC()).
		ToSql()
	if err != nil {
		return issue.Attachment{}, errors.Wrap(err, "building attachment insert")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return issue.Attachment{}, errors.Wrap(err, "inserting attachment")
	}
	return att, nil
}

func (repo issueRepository) QueryAttachments(ctx context.Context, issueID string) ([]issue.Attachment, error) {
	query, args, err := psql.Select(attachmentColumns...).From("issue_attachment").
		Where(sq.Eq{"issue_id": issueID}).OrderBy("uploaded_at ASC").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building attachments query")
	}
	var rows []attachmentRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying attachments")
	}
	attachments := make([]issue.Attachment, 0, len(rows))
	for _, row := range rows {
		attachments = append(attachments, row.unpack())
	}
	return attachments, nil
}

func (repo issueRepository) GetAttachment(ctx context.Context, id string) (issue.Attachment, error) {
	query, args, err := psql.Select(attachmentColumns...).From("issue_attachment").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return issue.Attachment{}, errors.Wrap(err, "building attachment query")
	}
	var row attachmentRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return issue.Attachment{}, issue.ErrAttachmentNotFound
		}
		return issue.Attachment{}, errors.Wrap(err, "getting attachment")
	}
	return row.unpack(), nil
}

func (repo issueRepository) DeleteAttachment(ctx context.Context, id string) error {
	query, args, err := psql.Delete("issue_attachment").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building attachment delete")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "deleting attachment")
	}
	return nil
}

// Templates

var templateColumns = []string{"id", "title", "description_template", "category", "created_by", "created_at", "updated_at"}

type templateRow struct {
	ID                  string    `db:"id"`
	Title               string    `db:"title"`
	DescriptionTemplate string    `db:"description_template"`
	Category            string    `db:"category"`
	CreatedBy           string    `db:"created_by"`
	CreatedAt           null.Time `db:"created_at"`
	UpdatedAt           null.Time `db:"updated_at"`
}

func (r templateRow) unpack() issue.Template {
	return issue.Template{
		ID:                  r.ID,
		Title:               r.Title,
		DescriptionTemplate: r.DescriptionTemplate,
		Category:            r.Category,
		CreatedBy:           r.CreatedBy,
		CreatedAt:           r.CreatedAt.Time,
		UpdatedAt:           r.UpdatedAt.Time,
	}
}

func (repo issueRepository) CreateTemplate(ctx context.Context, tpl issue.Template) (issue.Template, error) {
	tpl.ID = uuid.New().String()
	query, args, err := psql.Insert("issue_template").
		Columns(templateColumns...).
		Values(tpl.ID, tpl.Title, tpl.DescriptionTemplate, tpl.Category, tpl.CreatedBy,
			tpl.CreatedAt.UTC(), tpl.UpdatedAt.UTC()).
		ToSql()
	if err != nil {
		return issue.Template{}, errors.Wrap(err, "building template insert")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return issue.Template{}, errors.Wrap(err, "inserting template")
	}
	return tpl, nil
}

func (repo issueRepository) QueryTemplates(ctx context.Context, filter *issue.TemplateFilter) ([]issue.Template, error) {
	q := psql.Select(templateColumns...).From("issue_template")
	if filter != nil {
		if filter.Search != "" {
			q = q.Where(sq.ILike{"title": "%" + filter.Search + "%"})
		}
		if filter.Category != "" {
			q = q.Where(sq.Eq{"category": filter.Category})
		}
	}
	query, args, err := q.OrderBy("title ASC").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building templates query")
	}
	var rows []templateRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying templates")
	}
	templates := make([]issue.Template, 0, len(rows))
	for _, row := range rows {
		templates = append(templates, row.unpack())
	}
	return templates, nil
}

func (repo issueRepository) GetTemplate(ctx context.Context, id string) (issue.Template, error) {
	query, args, err := psql.Select(templateColumns...).From("issue_template").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return issue.Template{}, errors.Wrap(err, "building template query")
	}
	var row templateRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return issue.Template{}, issue.ErrTemplateNotFound
		}
		return issue.Template{}, errors.Wrap(err, "getting template")
	}
	return row.unpack(), nil
}

func (repo issueRepository) UpdateTemplate(ctx context.Context, tpl issue.Template) (issue.Template, error) {
	query, args, err := psql.Update("issue_template").
		Set("title", tpl.Title).
		Set("description_template", tpl.DescriptionTemplate).
		Set("category", tpl.Category).
		Set("updated_at", tpl.UpdatedAt.UTC()).
		Where(sq.Eq{"id": tpl.ID}).
		ToSql()
	if err != nil {
		return issue.Template{}, errors.Wrap(err, "building template update")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return issue.Template{}, errors.Wrap(err, "updating template")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return issue.Template{}, issue.ErrTemplateNotFound
	}
	return tpl, nil
}

func (repo issueRepository) DeleteTemplate(ctx context.Context, id string) error {
	query, args, err := psql.Delete("issue_template").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building template delete")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "deleting template")
	}
	return nil
}
