package tests

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/trezcool/shida/core/issue"
	"github.com/trezcool/shida/core/kb"
	"github.com/trezcool/shida/core/user"
	testutil "github.com/trezcool/shida/tests"
)

func Test_kbApi_create(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, app.usrRepo, "Hero", "hero01", "hero@test.cd", "2026-A", user.StudentRoles, true)
	mentor := testutil.CreateUser(t, app.usrRepo, "Maji", "mentor01", "maji@test.cd", "2026-A", user.MentorRoles, true)

	newArt := kb.NewArticle{
		Title:   "Reading checker output",
		Content: "The checker prints the failing case first...",
		Tags:    "Checker, Debugging",
	}

	tests := []httpTest{
		{name: "Auth required", body: marchallObj(t, newArt), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Students cannot publish", body: marchallObj(t, newArt), token: getToken(t, student), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "Content is required", body: []byte(`{"title": "X"}`), token: getToken(t, mentor), wantCode: http.StatusBadRequest},
		{name: "Article created", body: marchallObj(t, newArt), token: getToken(t, mentor), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/kb/articles", tt.token, tt.body)
			app.server.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var art kb.Article
				if err := json.Unmarshal(rec.Body.Bytes(), &art); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				// tags are lowercased and trimmed
				if art.Tags != "checker,debugging" {
					t.Errorf("tags = %q; want %q", art.Tags, "checker,debugging")
				}
				if art.CreatedBy != mentor.ID {
					t.Errorf("created_by = %q; want %q", art.CreatedBy, mentor.ID)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_kbApi_query(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, app.usrRepo, "Hero", "hero01", "hero@test.cd", "2026-A", user.StudentRoles, true)
	mentor := testutil.CreateUser(t, app.usrRepo, "Maji", "mentor01", "maji@test.cd", "2026-A", user.MentorRoles, true)
	token := getToken(t, student)

	newArticle := func(title, tags string) kb.Article {
		t.Helper()
		now := time.Now().UTC()
		art, err := app.kbRepo.CreateArticle(testCtx(), kb.Article{
			Title:     title,
			Content:   "content",
			Tags:      tags,
			CreatedBy: mentor.ID,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			t.Fatalf("CreateArticle(): %v", err)
		}
		return art
	}
	checker := newArticle("Reading checker output", "checker,debugging")
	git := newArticle("Resolving merge conflicts", "git")

	tests := []httpTest{
		{name: "All articles", path: "/v1/kb/articles", wantData: marchallList(t, checker, git)},
		{name: "By tag", path: "/v1/kb/articles?" + url.Values{"tag": {"git"}}.Encode(), wantData: marchallList(t, git)},
		{name: "Search", path: "/v1/kb/articles?" + url.Values{"search": {"checker"}}.Encode(), wantData: marchallList(t, checker)},
		{name: "Detail", path: "/v1/kb/articles/" + git.ID, wantData: marchallObj(t, git)},
		{
			name: "Unknown article", path: "/v1/kb/articles/deadbeef", wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_kbApi_fromIssue(t *testing.T) {
	app := setup(t)
	courseID, projectID, _ := seedCatalog(t, app)

	student := testutil.CreateUser(t, app.usrRepo, "Hero", "hero01", "hero@test.cd", "2026-A", user.StudentRoles, true)
	mentor := testutil.CreateUser(t, app.usrRepo, "Maji", "mentor01", "maji@test.cd", "2026-A", user.MentorRoles, true)

	now := time.Now().UTC()
	open := testutil.CreateIssue(t, app.issueRepo, issue.Issue{
		Title: "still open", Description: "d", Category: issue.CategoryOther,
		ReportedBy: student.ID, CourseID: courseID, ProjectID: projectID, Cohort: "2026-A",
	})
	resolved := testutil.CreateIssue(t, app.issueRepo, issue.Issue{
		Title: "Checker rejects valid solution", Description: "The checker fails on trailing whitespace.",
		Category: issue.CategoryCheckerError, Urgency: issue.UrgencyHigh, Status: issue.StatusResolved,
		ReportedBy: student.ID, AssignedTo: mentor.ID, CourseID: courseID, ProjectID: projectID, Cohort: "2026-A",
		FirstResponseAt: now, ResolvedAt: now,
	})

	t.Run("Mentor or admin required", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/kb/articles/from-issue/"+resolved.ID, getToken(t, student))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}, rec)
	})

	t.Run("Only resolved issues convert", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/kb/articles/from-issue/"+open.ID, getToken(t, mentor))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("Article drafted from issue", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/kb/articles/from-issue/"+resolved.ID, getToken(t, mentor))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var art kb.Article
		if err := json.Unmarshal(rec.Body.Bytes(), &art); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if art.Title != resolved.Title || art.RelatedIssueID != resolved.ID {
			t.Errorf("unexpected article: %+v", art)
		}
		if !strings.Contains(art.Content, resolved.Description) {
			t.Errorf("content misses the issue description: %q", art.Content)
		}
		if art.Tags != resolved.Category+","+resolved.Urgency {
			t.Errorf("tags = %q", art.Tags)
		}
	})
}

func Test_kbApi_updateDestroy(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, app.usrRepo, "Hero", "hero01", "hero@test.cd", "2026-A", user.StudentRoles, true)
	mentor := testutil.CreateUser(t, app.usrRepo, "Maji", "mentor01", "maji@test.cd", "2026-A", user.MentorRoles, true)

	now := time.Now().UTC()
	art, err := app.kbRepo.CreateArticle(testCtx(), kb.Article{
		Title: "Reading checker output", Content: "content", CreatedBy: mentor.ID, CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateArticle(): %v", err)
	}

	t.Run("Students cannot edit", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/kb/articles/"+art.ID, getToken(t, student),
			marchallObj(t, kb.UpdateArticle{Title: "Hacked"}))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}, rec)
	})

	t.Run("Article updated", func(t *testing.T) {
		tags := "Checker, Output"
		req, rec := newAuthRequest(http.MethodPut, "/v1/kb/articles/"+art.ID, getToken(t, mentor),
			marchallObj(t, kb.UpdateArticle{Tags: &tags}))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var got kb.Article
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if got.Tags != "checker,output" {
			t.Errorf("tags = %q; want %q", got.Tags, "checker,output")
		}
	})

	t.Run("Article deleted", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/kb/articles/"+art.ID, getToken(t, mentor))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		if _, err := app.kbRepo.GetArticle(testCtx(), art.ID); err != kb.ErrNotFound {
			t.Errorf("article still exists; err %v", err)
		}
	})
}
