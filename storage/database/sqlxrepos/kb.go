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
	"github.com/trezcool/shida/core/kb"
)

type kbRepository struct {
	db *sqlx.DB
}

var _ kb.Repository = (*kbRepository)(nil) // interface compliance check

func NewKBRepository(db *sqlx.DB) *kbRepository {
	return &kbRepository{db: db}
}

var articleColumns = []string{"id", "title", "content", "related_issue_id", "tags", "created_by", "created_at", "updated_at"}

type articleRow struct {
	ID             string      `db:"id"`
	Title          string      `db:"title"`
	Content        string      `db:"content"`
	RelatedIssueID null.String `db:"related_issue_id"`
	Tags           string      `db:"tags"`
	CreatedBy      string      `db:"created_by"`
	CreatedAt      null.Time   `db:"created_at"`
	UpdatedAt      null.Time   `db:"updated_at"`
}

func (r articleRow) unpack() kb.Article {
	return kb.Article{
		ID:             r.ID,
		Title:          r.Title,
		Content:        r.Content,
		RelatedIssueID: r.RelatedIssueID.String,
		Tags:           r.Tags,
		CreatedBy:      r.CreatedBy,
		CreatedAt:      r.CreatedAt.Time,
		UpdatedAt:      r.UpdatedAt.Time,
	}
}

func (repo kbRepository) CreateArticle(ctx context.Context, art kb.Article) (kb.Article, error) {
	art.ID = uuid.New().String()
	query, args, err := psql.Insert("kb_article").
		Columns(articleColumns...).
		Values(art.ID, art.Title, art.Content,
			null.NewString(art.RelatedIssueID, art.RelatedIssueID != ""),
			art.Tags, art.CreatedBy, art.CreatedAt.UTC(), art.UpdatedAt.UTC()).
		ToSql()
	if err != nil {
		return kb.Article{}, errors.Wrap(err, "building article insert")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return kb.Article{}, errors.Wrap(err, "inserting article")
	}
	return art, nil
}

func (repo kbRepository) QueryArticles(ctx context.Context, filter *kb.QueryFilter, ordering ...core.DBOrdering) ([]kb.Article, error) {
	q := psql.Select(articleColumns...).From("kb_article")
	if filter != nil {
		// articles with Title or Content matching the search keyword
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			q = q.Where(sq.Or{
				sq.ILike{"title": val},
				sq.ILike{"content": val},
			})
		}
		// tags is a comma-separated list; match the tag anywhere in it
		if filter.Tag != "" {
			q = q.Where(sq.ILike{"tags": "%" + filter.Tag + "%"})
		}
		if filter.RelatedIssueID != "" {
			q = q.Where(sq.Eq{"related_issue_id": filter.RelatedIssueID})
		}
	}
	q = applyOrdering(q, ordering, "created_at DESC")

	query, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building articles query")
	}
	var rows []articleRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying articles")
	}
	articles := make([]kb.Article, 0, len(rows))
	for _, row := range rows {
		articles = append(articles, row.unpack())
	}
	return articles, nil
}

func (repo kbRepository) GetArticle(ctx context.Context, id string) (kb.Article, error) {
	query, args, err := psql.Select(articleColumns...).From("kb_article").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return kb.Article{}, errors.Wrap(err, "building article query")
	}
	var row articleRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return kb.Article{}, kb.ErrNotFound
		}
		return kb.Article{}, errors.Wrap(err, "getting article")
	}
	return row.unpack(), nil
}

func (repo kbRepository) UpdateArticle(ctx context.Context, art kb.Article) (kb.Article, error) {
	query, args, err := psql.Update("kb_article").
		Set("title", art.Title).
		Set("content", art.Content).
		Set("related_issue_id", null.NewString(art.RelatedIssueID, art.RelatedIssueID != "")).
		Set("tags", art.Tags).
		Set("updated_at", art.UpdatedAt.UTC()).
		Where(sq.Eq{"id": art.ID}).
		ToSql()
	if err != nil {
		return kb.Article{}, errors.Wrap(err, "building article update")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return kb.Article{}, errors.Wrap(err, "updating article")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return kb.Article{}, kb.ErrNotFound
	}
	return art, nil
}

func (repo kbRepository) DeleteArticle(ctx context.Context, id string) error {
	query, args, err := psql.Delete("kb_article").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building article delete")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "deleting article")
	}
	return nil
}
