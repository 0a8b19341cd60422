package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/shida/core"
	"github.com/trezcool/shida/core/kb"
)

type kbRepository struct {
	db *DB
}

var _ kb.Repository = (*kbRepository)(nil) // interface compliance check

func NewKBRepository(db *DB) *kbRepository {
	return &kbRepository{db: db}
}

func (repo *kbRepository) CreateArticle(_ context.Context, art kb.Article) (kb.Article, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	art.ID = uuid.New().String()
	repo.db.articles[art.ID] = &art
	return art, nil
}

func (repo *kbRepository) QueryArticles(_ context.Context, filter *kb.QueryFilter, _ ...core.DBOrdering) ([]kb.Article, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	articles := make([]kb.Article, 0, len(repo.db.articles))
	for _, art := range repo.db.articles {
		if filter != nil && !matchArticle(*art, filter) {
			continue
		}
		articles = append(articles, *art)
	}
	sort.Slice(articles, func(i, j int) bool { return articles[i].CreatedAt.After(articles[j].CreatedAt) })
	return articles, nil
}

func matchArticle(art kb.Article, filter *kb.QueryFilter) bool {
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		if !(strings.Contains(strings.ToLower(art.Title), s) ||
			strings.Contains(strings.ToLower(art.Content), s)) {
			return false
		}
	}
	if filter.Tag != "" {
		var hasTag bool
		for _, tag := range art.TagList() {
			if tag == filter.Tag {
				hasTag = true
				break
			}
		}
		if !hasTag {
			return false
		}
	}
	if filter.RelatedIssueID != "" && art.RelatedIssueID != filter.RelatedIssueID {
		return false
	}
	return true
}

func (repo *kbRepository) GetArticle(_ context.Context, id string) (kb.Article, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if art, ok := repo.db.articles[id]; ok {
		return *art, nil
	}
	return kb.Article{}, kb.ErrNotFound
}

func (repo *kbRepository) UpdateArticle(_ context.Context, art kb.Article) (kb.Article, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.articles[art.ID]; !ok {
		return kb.Article{}, kb.ErrNotFound
	}
	repo.db.articles[art.ID] = &art
	return art, nil
}

func (repo *kbRepository) DeleteArticle(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.articles, id)
	return nil
}
