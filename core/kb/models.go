package kb

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shida/core"
)

type Article struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	RelatedIssueID string    `json:"related_issue_id"` // empty: standalone article
	Tags           string    `json:"tags"`             // comma-separated
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
}

// TagList splits the comma-separated Tags field.
func (a *Article) TagList() []string {
	if a.Tags == "" {
		return nil
	}
	parts := strings.Split(a.Tags, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

type NewArticle struct {
	Title          string `json:"title" validate:"required"`
	Content        string `json:"content" validate:"required"`
	RelatedIssueID string `json:"related_issue_id"`
	Tags           string `json:"tags"`
}

func (na *NewArticle) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Tags = cleanTags(na.Tags)
	return validate.Struct(na)
}

type UpdateArticle struct {
	Title          string  `json:"title"`
	Content        string  `json:"content"`
	RelatedIssueID *string `json:"related_issue_id"`
	Tags           *string `json:"tags"`
}

func (ua *UpdateArticle) Validate(validate *validator.Validate) error {
	ua.Title = core.CleanString(ua.Title)
	if ua.Tags != nil {
		tags := cleanTags(*ua.Tags)
		ua.Tags = &tags
	}
	return validate.Struct(ua)
}

func cleanTags(tags string) string {
	parts := strings.Split(tags, ",")
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = core.CleanString(p, true /* lower */); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return strings.Join(cleaned, ",")
}

type QueryFilter struct {
	Search         string `query:"search"`
	Tag            string `query:"tag"`
	RelatedIssueID string `query:"related_issue"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Tag = core.CleanString(qf.Tag, true /* lower */)
}
