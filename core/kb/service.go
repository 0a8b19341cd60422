package kb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shida/core"
	"github.com/trezcool/shida/core/issue"
	"github.com/trezcool/shida/core/user"
)

var (
	// errors
	ErrNotFound         = errors.New("article not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrIssueNotResolved = errors.New("only resolved issues can be converted to articles")
)

type (
	Repository interface {
		CreateArticle(ctx context.Context, art Article) (Article, error)
		QueryArticles(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Article, error)
		GetArticle(ctx context.Context, id string) (Article, error)
		UpdateArticle(ctx context.Context, art Article) (Article, error)
		DeleteArticle(ctx context.Context, id string) error
	}

	Service interface {
		Create(actor user.User, na NewArticle) (Article, error)
		Query(filter *QueryFilter, ordering ...core.DBOrdering) ([]Article, error)
		GetByID(id string) (Article, error)
		Update(actor user.User, id string, ua UpdateArticle) (Article, error)
		Delete(actor user.User, id string) error
		// FromIssue builds an article draft from a resolved issue.
		FromIssue(actor user.User, issueID string) (Article, error)
	}

	service struct {
		repo     Repository
		issueSvc issue.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, issueSvc issue.Service) Service {
	return &service{repo: repo, issueSvc: issueSvc}
}

func (svc *service) Create(actor user.User, na NewArticle) (Article, error) {
	if !(actor.IsMentor() || actor.IsAdmin()) {
		return Article{}, ErrPermissionDenied
	}
	now := time.Now().UTC()
	return svc.repo.CreateArticle(context.Background(), Article{
		Title:          na.Title,
		Content:        na.Content,
		RelatedIssueID: na.RelatedIssueID,
		Tags:           na.Tags,
		CreatedBy:      actor.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

func (svc *service) Query(filter *QueryFilter, ordering ...core.DBOrdering) ([]Article, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryArticles(context.Background(), filter, ordering...)
}

func (svc *service) GetByID(id string) (Article, error) {
	return svc.repo.GetArticle(context.Background(), id)
}

func (svc *service) Update(actor user.User, id string, ua UpdateArticle) (Article, error) {
	art, err := svc.repo.GetArticle(context.Background(), id)
	if err != nil {
		return Article{}, err
	}
	if art.CreatedBy != actor.ID && !(actor.IsMentor() || actor.IsAdmin()) {
		return Article{}, ErrPermissionDenied
	}
	if ua.Title != "" {
		art.Title = ua.Title
	}
	if ua.Content != "" {
		art.Content = ua.Content
	}
	if ua.RelatedIssueID != nil {
		art.RelatedIssueID = *ua.RelatedIssueID
	}
	if ua.Tags != nil {
		art.Tags = *ua.Tags
	}
	art.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateArticle(context.Background(), art)
}

func (svc *service) Delete(actor user.User, id string) error {
	art, err := svc.repo.GetArticle(context.Background(), id)
	if err != nil {
		return err
	}
	if art.CreatedBy != actor.ID && !(actor.IsMentor() || actor.IsAdmin()) {
		return ErrPermissionDenied
	}
	return svc.repo.DeleteArticle(context.Background(), id)
}

// FromIssue drafts an article off a resolved issue's title, description and
// resolving context, tagged with the issue's category and urgency.
func (svc *service) FromIssue(actor user.User, issueID string) (Article, error) {
	if !(actor.IsMentor() || actor.IsAdmin()) {
		return Article{}, ErrPermissionDenied
	}

	detail, err := svc.issueSvc.GetDetail(actor, issueID)
	if err != nil {
		return Article{}, err
	}
	if !detail.IsResolved() {
		return Article{}, core.NewValidationError(ErrIssueNotResolved)
	}

	var content strings.Builder
	content.WriteString("## Problem\n\n")
	content.WriteString(detail.Description)
	if len(detail.Comments) > 0 {
		content.WriteString("\n\n## Resolution notes\n")
		for _, cmt := range detail.Comments {
			content.WriteString(fmt.Sprintf("\n- %s", cmt.Content))
		}
	}

	now := time.Now().UTC()
	return svc.repo.CreateArticle(context.Background(), Article{
		Title:          detail.Title,
		Content:        content.String(),
		RelatedIssueID: detail.ID,
		Tags:           strings.Join([]string{detail.Category, detail.Urgency}, ","),
		CreatedBy:      actor.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}
