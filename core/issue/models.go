package issue

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shida/core"
)

// Statuses
const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
)

// Categories
const (
	CategoryCheckerError        = "checker_error"
	CategoryUnclearInstructions = "unclear_instructions"
	CategoryTypo                = "typo"
	CategoryTechnicalError      = "technical_error"
	CategoryOther               = "other"
)

// Urgencies
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

var (
	statusDisplays = map[string]string{
		StatusOpen:       "Open",
		StatusInProgress: "In Progress",
		StatusResolved:   "Resolved",
	}
	categoryDisplays = map[string]string{
		CategoryCheckerError:        "Checker Error",
		CategoryUnclearInstructions: "Unclear Instructions",
		CategoryTypo:                "Typo",
		CategoryTechnicalError:      "Technical Error",
		CategoryOther:               "Other",
	}
	urgencyDisplays = map[string]string{
		UrgencyLow:    "Low",
		UrgencyMedium: "Medium",
		UrgencyHigh:   "High",
	}
)

func StatusDisplay(status string) string     { return statusDisplays[status] }
func CategoryDisplay(category string) string { return categoryDisplays[category] }
func UrgencyDisplay(urgency string) string   { return urgencyDisplays[urgency] }

type Issue struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Urgency     string `json:"urgency"`
	Status      string `json:"status"`

	ReportedBy string `json:"reported_by"`
	AssignedTo string `json:"assigned_to"` // empty: unassigned

	CourseID   string `json:"course_id"`
	ProjectID  string `json:"project_id"`
	TaskID     string `json:"task_id"` // empty: whole project
	Cohort     string `json:"cohort"`
	WeekNumber int    `json:"week_number"`

	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
	FirstResponseAt time.Time `json:"first_response_at"`
	ResolvedAt      time.Time `json:"resolved_at"`
}

func (i *Issue) IsOpen() bool     { return i.Status == StatusOpen }
func (i *Issue) IsResolved() bool { return i.Status == StatusResolved }

// FirstResponseDeadline derives the first response deadline from the creation
// time and the configured target for this issue's urgency.
func (i *Issue) FirstResponseDeadline(conf *core.Config) time.Time {
	return i.CreatedAt.Add(conf.SLA.FirstResponse[i.Urgency])
}

func (i *Issue) ResolutionDeadline(conf *core.Config) time.Time {
	return i.CreatedAt.Add(conf.SLA.Resolution[i.Urgency])
}

// IsOverdue reports whether a pending SLA stage has passed its deadline.
func (i *Issue) IsOverdue(conf *core.Config, now time.Time) bool {
	if i.FirstResponseAt.IsZero() && now.After(i.FirstResponseDeadline(conf)) {
		return true
	}
	if i.ResolvedAt.IsZero() && now.After(i.ResolutionDeadline(conf)) {
		return true
	}
	return false
}

type Comment struct {
	ID        string    `json:"id"`
	IssueID   string    `json:"issue_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type Feedback struct {
	ID        string    `json:"id"`
	IssueID   string    `json:"issue_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type HistoryEntry struct {
	ID          string    `json:"id"`
	IssueID     string    `json:"issue_id"`
	Action      string    `json:"action"`
	PerformedBy string    `json:"performed_by"` // empty: system / deleted user
	Timestamp   time.Time `json:"timestamp"`    // UTC
}

type Attachment struct {
	ID          string    `json:"id"`
	IssueID     string    `json:"issue_id"`
	FileName    string    `json:"file_name"` // original name
	Path        string    `json:"-"`         // stored path, relative to the media root
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedBy  string    `json:"uploaded_by"`
	UploadedAt  time.Time `json:"uploaded_at"` // UTC
}

type Template struct {
	ID                  string    `json:"id"`
	Title               string    `json:"title"`
	DescriptionTemplate string    `json:"description_template"`
	Category            string    `json:"category"`
	CreatedBy           string    `json:"created_by"`
	CreatedAt           time.Time `json:"created_at"` // UTC
	UpdatedAt           time.Time `json:"updated_at"` // UTC
}

// Detail bundles an Issue with its related objects for retrieval.
type Detail struct {
	Issue
	Comments    []Comment      `json:"comments"`
	Attachments []Attachment   `json:"attachments"`
	History     []HistoryEntry `json:"history"`
	Feedback    *Feedback      `json:"feedback"`
}

// Stats summarizes issues visible to mentors/admins.
type Stats struct {
	Total       int            `json:"total"`
	ByStatus    map[string]int `json:"by_status"`
	ByCategory  map[string]int `json:"by_category"`
	ByUrgency   map[string]int `json:"by_urgency"`
	OpenOverdue int            `json:"open_overdue"`

	AvgFirstResponse core.Duration `json:"avg_first_response"`
	AvgResolution    core.Duration `json:"avg_resolution"`
}

// NewIssue contains information needed to report a new Issue.
type NewIssue struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Category    string `json:"category" validate:"required,issuecategory"`
	Urgency     string `json:"urgency" validate:"omitempty,issueurgency"`
	CourseID    string `json:"course_id" validate:"required"`
	ProjectID   string `json:"project_id" validate:"required"`
	TaskID      string `json:"task_id"`
	Cohort      string `json:"cohort"`
	WeekNumber  int    `json:"week_number"`
}

func (ni *NewIssue) Validate(validate *validator.Validate) error {
	ni.Title = core.CleanString(ni.Title)
	ni.Cohort = core.CleanString(ni.Cohort)
	if ni.Urgency == "" {
		ni.Urgency = UrgencyMedium
	}
	return validate.Struct(ni)
}

// UpdateIssue defines what information may be provided to modify an existing Issue.
// Nil / empty fields are left untouched.
type UpdateIssue struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category" validate:"omitempty,issuecategory"`
	Urgency     string  `json:"urgency" validate:"omitempty,issueurgency"`
	Status      string  `json:"status" validate:"omitempty,issuestatus"`
	AssignedTo  *string `json:"assigned_to"`
}

func (ui *UpdateIssue) Validate(validate *validator.Validate) error {
	ui.Title = core.CleanString(ui.Title)
	return validate.Struct(ui)
}

type NewComment struct {
	Content string `json:"content" validate:"required"`
}

func (nc *NewComment) Validate(validate *validator.Validate) error {
	nc.Content = core.CleanString(nc.Content)
	return validate.Struct(nc)
}

type UpdateComment struct {
	Content string `json:"content" validate:"required"`
}

func (uc *UpdateComment) Validate(validate *validator.Validate) error {
	uc.Content = core.CleanString(uc.Content)
	return validate.Struct(uc)
}

type NewFeedback struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

func (nf *NewFeedback) Validate(validate *validator.Validate) error {
	nf.Comment = core.CleanString(nf.Comment)
	return validate.Struct(nf)
}

type NewTemplate struct {
	Title               string `json:"title" validate:"required"`
	DescriptionTemplate string `json:"description_template" validate:"required"`
	Category            string `json:"category" validate:"required,issuecategory"`
}

func (nt *NewTemplate) Validate(validate *validator.Validate) error {
	nt.Title = core.CleanString(nt.Title)
	return validate.Struct(nt)
}

type UpdateTemplate struct {
	Title               string `json:"title"`
	DescriptionTemplate string `json:"description_template"`
	Category            string `json:"category" validate:"omitempty,issuecategory"`
}

func (ut *UpdateTemplate) Validate(validate *validator.Validate) error {
	ut.Title = core.CleanString(ut.Title)
	return validate.Struct(ut)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Status      string    `query:"status"`
	Category    string    `query:"category"`
	Urgency     string    `query:"urgency"`
	CourseID    string    `query:"course"`
	ProjectID   string    `query:"project"`
	TaskID      string    `query:"task"`
	Cohort      string    `query:"cohort"`
	WeekNumber  int       `query:"week_number"`
	ReportedBy  string    `query:"reported_by"`
	AssignedTo  string    `query:"assigned_to"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Cohort = core.CleanString(qf.Cohort)
}

type TemplateFilter struct {
	Search   string `query:"search"`
	Category string `query:"category"`
}
