package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/trezcool/shida/core/issue"
	"github.com/trezcool/shida/core/user"
	testutil "github.com/trezcool/shida/tests"
)

// seedCatalog returns a course with one project and one task.
func seedCatalog(t *testing.T, app *testApp) (courseID, projectID, taskID string) {
	t.Helper()

	crs := testutil.CreateCourse(t, app.crsRepo, "Full-Stack Web Development", 12)
	prj := testutil.CreateProject(t, app.crsRepo, crs.ID, "Week 1 Project", 1)
	tsk := testutil.CreateTask(t, app.crsRepo, prj.ID, 1, "Task 1.1")
	return crs.ID, prj.ID, tsk.ID
}

func Test_issueApi_create(t *testing.T) {
	app := setup(t)
	courseID, projectID, taskID := seedCatalog(t, app)

	student := testutil.CreateUser(t, app.usrRepo, "Hero", "hero01", "hero@test.cd", "2026-A", user.StudentRoles, true)

	newIss := issue.NewIssue{
		Title:       "Checker rejects valid solution",
		Description: "The checker fails even though the output matches the sample.",
		Category:    issue.CategoryCheckerError,
		CourseID:    courseID,
		ProjectID:   projectID,
		TaskID:      taskID,
		WeekNumber:  1,
	}
	badCategory := newIss
	badCategory.Category = "wat"

	tests := []httpTest{
		{name: "Auth required", body: marchallObj(t, newIss), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Empty body", body: []byte(`{}`), token: getToken(t, student), wantCode: http.StatusBadRequest},
		{name: "Unknown category", body: marchallObj(t, badCategory), token: getToken(t, student), wantCode: http.StatusBadRequest},
		{name: "Issue created", body: marchallObj(t, newIss), token: getToken(t, student), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/issues", tt.token, tt.body)
			app.server.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var iss issue.Issue
				if err := json.Unmarshal(rec.Body.Bytes(), &iss); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				if iss.Status != issue.StatusOpen {
					t.Errorf("status = %q; want %q", iss.Status, issue.StatusOpen)
				}
				if iss.Urgency != issue.UrgencyMedium {
					t.Errorf("urgency = %q; want default %q", iss.Urgency, issue.UrgencyMedium)
				}
				if iss.Cohort != student.Cohort {
					t.Errorf("cohort = %q; want reporter's %q", iss.Cohort, student.Cohort)
				}
				if iss.ReportedBy != student.ID {
					t.Errorf("reported_by = %q; want %q", iss.ReportedBy, student.ID)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_issueApi_visibility(t *testing.T) {
	app := setup(t)
	courseID, projectID, _ := seedCatalog(t, app)

	alice := testutil.CreateUser(t, app.usrRepo, "Alice", "alice01", "alice@test.cd", "2026-A", user.StudentRoles, true)
	bob := testutil.CreateUser(t, app.usrRepo, "Bob", "bob01", "bob@test.cd", "2026-A", user.StudentRoles, true)
	carol := testutil.CreateUser(t, app.usrRepo, "Carol", "carol01", "carol@test.cd", "2026-B", user.StudentRoles, true)
	mentorA := testutil.CreateUser(t, app.usrRepo, "Maji", "mentor01", "maji@test.cd", "2026-A", user.MentorRoles, true)
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin01", "admin@test.cd", "", user.AdminRoles, true)

	base := issue.Issue{
		Description: "something broke",
		Category:    issue.CategoryTechnicalError,
		CourseID:    courseID,
		ProjectID:   projectID,
		WeekNumber:  1,
	}
	newIss := func(title, reporter, cohort string) issue.Issue {
		iss := base
		iss.Title = title
		iss.ReportedBy = reporter
		iss.Cohort = cohort
		return testutil.CreateIssue(t, app.issueRepo, iss)
	}
	issAlice := newIss("alice's issue", alice.ID, alice.Cohort)
	issBob := newIss("bob's issue", bob.ID, bob.Cohort)
	issCarol := newIss("carol's issue", carol.ID, carol.Cohort)

	tests := []httpTest{
		{name: "Student sees own issues only", token: getToken(t, alice), wantData: marchallList(t, issAlice)},
		{name: "Mentor sees their cohort", token: getToken(t, mentorA), wantData: marchallList(t, issAlice, issBob)},
		{name: "Admin sees everything", token: getToken(t, admin), wantData: marchallList(t, issAlice, issBob, issCarol)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/issues", tt.token)
			app.server.ServeHTTP(rec, req)
			tt.wantCode = http.StatusOK
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("Student cannot retrieve another's issue", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/issues/"+issBob.ID, getToken(t, alice))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		}, rec)
	})

	t.Run("Mentor cannot retrieve another cohort's issue", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/issues/"+issCarol.ID, getToken(t, mentorA))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("Overdue requires mentor or admin", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/issues/overdue", getToken(t, alice))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}, rec)
	})
}

func Test_issueApi_queryMineAndAssigned(t *testing.T) {
	app := setup(t)
	courseID, projectID, _ := seedCatalog(t, app)

	alice := testutil.CreateUser(t, app.usrRepo, "Alice", "alice01", "alice@test.cd", "2026-A", user.StudentRoles, true)
	bob := testutil.CreateUser(t, app.usrRepo, "Bob", "bob01", "bob@test.cd", "2026-A", user.StudentRoles, true)
	mentor := testutil.CreateUser(t, app.usrRepo, "Maji", "mentor01", "maji@test.cd", "2026-A", user.MentorRoles, true)

	issAlice := testutil.CreateIssue(t, app.issueRepo, issue.Issue{
		Title: "alice's issue", Description: "d", Category: issue.CategoryOther,
		ReportedBy: alice.ID, CourseID: courseID, ProjectID: projectID, Cohort: "2026-A",
	})
	issBob := testutil.CreateIssue(t, app.issueRepo, issue.Issue{
		Title: "bob's issue", Description: "d", Category: issue.CategoryOther,
		ReportedBy: bob.ID, AssignedTo: mentor.ID, CourseID: courseID, ProjectID: projectID, Cohort: "2026-A",
	})

	t.Run("My issues", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/issues/my", getToken(t, alice))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, issAlice)}, rec)
	})

	t.Run("Assigned to me", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/issues/assigned-to-me", getToken(t, mentor))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, issBob)}, rec)
	})
}

func Test_issueApi_update(t *testing.T) {
	app := setup(t)
	courseID, projectID, _ := seedCatalog(t, app)

	student := testutil.CreateUser(t, app.usrRepo, "Hero", "hero01", "hero@test.cd", "2026-A", user.StudentRoles, true)
	mentor := testutil.CreateUser(t, app.usrRepo, "Maji", "mentor01", "maji@test.cd", "2026-A", user.MentorRoles, true)

	iss := testutil.CreateIssue(t, app.issueRepo, issue.Issue{
		Title: "Unclear instructions", Description: "step 3 is vague", Category: issue.CategoryUnclearInstructions,
		ReportedBy: student.ID, CourseID: courseID, ProjectID: projectID, Cohort: "2026-A",
	})

	getIssue := func(t *testing.T) issue.Issue {
		t.Helper()
		got, err := app.issueRepo.GetIssue(testCtx(), iss.ID)
		if err != nil {
			t.Fatalf("GetIssue(): %v", err)
		}
		return got
	}

	t.Run("Student can edit own open issue's basic fields", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/issues/"+iss.ID, getToken(t, student),
			marchallObj(t, issue.UpdateIssue{Title: "Unclear instructions in week 1"}))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		if got := getIssue(t); got.Title != "Unclear instructions in week 1" {
			t.Errorf("title not updated: %q", got.Title)
		}
	})

	t.Run("Student cannot change status", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/issues/"+iss.ID, getToken(t, student),
			marchallObj(t, issue.UpdateIssue{Status: issue.StatusResolved}))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}, rec)
	})

	t.Run("Status change to in_progress stamps first response", func(t *testing.T) {
		assignee := mentor.ID
		req, rec := newAuthRequest(http.MethodPut, "/v1/issues/"+iss.ID, getToken(t, mentor),
			marchallObj(t, issue.UpdateIssue{Status: issue.StatusInProgress, AssignedTo: &assignee}))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		got := getIssue(t)
		if got.FirstResponseAt.IsZero() {
			t.Error("FirstResponseAt not stamped")
		}
		if got.AssignedTo != mentor.ID {
			t.Errorf("assigned_to = %q; want %q", got.AssignedTo, mentor.ID)
		}
	})

	t.Run("Resolving stamps resolution time", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/issues/"+iss.ID, getToken(t, mentor),
			marchallObj(t, issue.UpdateIssue{Status: issue.StatusResolved}))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		if got := getIssue(t); got.ResolvedAt.IsZero() {
			t.Error("ResolvedAt not stamped")
		}
	})

	t.Run("Student cannot edit a resolved issue", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/issues/"+iss.ID, getToken(t, student),
			marchallObj(t, issue.UpdateIssue{Title: "nope"}))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("Reopening clears resolution time", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/issues/"+iss.ID, getToken(t, mentor),
			marchallObj(t, issue.UpdateIssue{Status: issue.StatusInProgress}))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		if got := getIssue(t); !got.ResolvedAt.IsZero() {
			t.Error("ResolvedAt not cleared on reopen")
		}
	})

	t.Run("History records status changes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/issues/"+iss.ID+"/history", getToken(t, mentor))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var entries []issue.HistoryEntry
		if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		// 3 status changes + 1 assignment
		if len(entries) != 4 {
			t.Errorf("got %d history entries; want 4: %+v", len(entries), entries)
		}
	})
}

func Test_issueApi_destroy(t *testing.T) {
	app := setup(t)
	courseID, projectID, _ := seedCatalog(t, app)

	student := testutil.CreateUser(t, app.usrRepo, "Hero", "hero01", "hero@test.cd", "2026-A", user.StudentRoles, true)
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin01", "admin@test.cd", "", user.AdminRoles, true)

	iss := testutil.CreateIssue(t, app.issueRepo, issue.Issue{
		Title: "to be deleted", Description: "d", Category: issue.CategoryOther,
		ReportedBy: student.ID, CourseID: courseID, ProjectID: projectID, Cohort: "2026-A",
	})

	t.Run("Admin required", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/issues/"+iss.ID, getToken(t, student))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}, rec)
	})

	t.Run("Issue deleted", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/issues/"+iss.ID, getToken(t, admin))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		if _, err := app.issueRepo.GetIssue(testCtx(), iss.ID); err != issue.ErrNotFound {
			t.Errorf("issue still exists; err %v", err)
		}
	})
}

func Test_issueApi_comments(t *testing.T) {
	app := setup(t)
	courseID, projectID, _ := seedCatalog(t, app)

	student := testutil.CreateUser(t, app.usrRepo, "Hero", "hero01", "hero@test.cd", "2026-A", user.StudentRoles, true)
	other := testutil.CreateUser(t, app.usrRepo, "Other", "other01", "other@test.cd", "2026-A", user.StudentRoles, true)
	mentor := testutil.CreateUser(t, app.usrRepo, "Maji", "mentor01", "maji@test.cd", "2026-A", user.MentorRoles, true)

	iss := testutil.CreateIssue(t, app.issueRepo, issue.Issue{
		Title: "needs discussion", Description: "d", Category: issue.CategoryOther,
		ReportedBy: student.ID, CourseID: courseID, ProjectID: projectID, Cohort: "2026-A",
	})

	var cmt issue.Comment

	t.Run("Reporter can comment", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/issues/"+iss.ID+"/comments", getToken(t, student),
			marchallObj(t, issue.NewComment{Content: "any update on this?"}))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &cmt); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
	})

	t.Run("Outsider cannot comment", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/issues/"+iss.ID+"/comments", getToken(t, other),
			marchallObj(t, issue.NewComment{Content: "me too"}))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("Mentor sees the thread", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/issues/"+iss.ID+"/comments", getToken(t, mentor))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, cmt)}, rec)
	})

	t.Run("Author can edit own comment", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/issues/comments/"+cmt.ID, getToken(t, student),
			marchallObj(t, issue.UpdateComment{Content: "any update? it's been a while"}))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("Mentor can delete any comment", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/issues/comments/"+cmt.ID, getToken(t, mentor))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Errorf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
	})
}

func Test_issueApi_feedback(t *testing.T) {
	app := setup(t)
	courseID, projectID, _ := seedCatalog(t, app)

	student := testutil.CreateUser(t, app.usrRepo, "Hero", "hero01", "hero@test.cd", "2026-A", user.StudentRoles, true)
	mentor := testutil.CreateUser(t, app.usrRepo, "Maji", "mentor01", "maji@test.cd", "2026-A", user.MentorRoles, true)

	open := testutil.CreateIssue(t, app.issueRepo, issue.Issue{
		Title: "still open", Description: "d", Category: issue.CategoryOther,
		ReportedBy: student.ID, CourseID: courseID, ProjectID: projectID, Cohort: "2026-A",
	})
	now := time.Now().UTC()
	resolved := testutil.CreateIssue(t, app.issueRepo, issue.Issue{
		Title: "all done", Description: "d", Category: issue.CategoryOther, Status: issue.StatusResolved,
		ReportedBy: student.ID, AssignedTo: mentor.ID, CourseID: courseID, ProjectID: projectID, Cohort: "2026-A",
		FirstResponseAt: now, ResolvedAt: now,
	})

	body := marchallObj(t, issue.NewFeedback{Rating: 5, Comment: "fast and helpful"})

	tests := []httpTest{
		{name: "Rating is required", path: resolved.ID, body: []byte(`{}`), token: getToken(t, student), wantCode: http.StatusBadRequest},
		{name: "Open issues take no feedback", path: open.ID, body: body, token: getToken(t, student), wantCode: http.StatusBadRequest},
		{name: "Only the reporter may rate", path: resolved.ID, body: body, token: getToken(t, mentor), wantCode: http.StatusForbidden},
		{name: "Feedback submitted", path: resolved.ID, body: body, token: getToken(t, student), wantCode: http.StatusCreated},
		{name: "No double feedback", path: resolved.ID, body: body, token: getToken(t, student), wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/issues/"+tt.path+"/feedback", tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_issueApi_attachments(t *testing.T) {
	app := setup(t)
	courseID, projectID, _ := seedCatalog(t, app)

	student := testutil.CreateUser(t, app.usrRepo, "Hero", "hero01", "hero@test.cd", "2026-A", user.StudentRoles, true)
	other := testutil.CreateUser(t, app.usrRepo, "Other", "other01", "other@test.cd", "2026-B", user.StudentRoles, true)

	iss := testutil.CreateIssue(t, app.issueRepo, issue.Issue{
		Title: "see screenshot", Description: "d", Category: issue.CategoryOther,
		ReportedBy: student.ID, CourseID: courseID, ProjectID: projectID, Cohort: "2026-A",
	})

	content := append([]byte("\x89PNG\r\n\x1a\n"), []byte("pretend this is a png")...)
	var att issue.Attachment

	t.Run("Upload", func(t *testing.T) {
		req, rec := newUploadRequest(t, "/v1/issues/"+iss.ID+"/attachments", getToken(t, student),
			"screenshot.png", "image/png", content)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &att); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if att.FileName != "screenshot.png" || att.Size != int64(len(content)) {
			t.Errorf("unexpected attachment: %+v", att)
		}
		if att.ContentType != "image/png" {
			t.Errorf("content_type = %q, want image/png", att.ContentType)
		}
	})

	t.Run("Disallowed content type", func(t *testing.T) {
		// declared type lies; the executable signature is what counts
		exe := append([]byte("MZ\x90\x00"), content...)
		req, rec := newUploadRequest(t, "/v1/issues/"+iss.ID+"/attachments", getToken(t, student),
			"virus.png", "image/png", exe)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("Download", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/issues/attachments/"+att.ID, getToken(t, student))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		if !bytes.Equal(rec.Body.Bytes(), content) {
			t.Error("downloaded content differs from upload")
		}
		if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="screenshot.png"` {
			t.Errorf("unexpected Content-Disposition: %q", cd)
		}
	})

	t.Run("Download is masked outside visibility", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/issues/attachments/"+att.ID, getToken(t, other))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/issues/attachments/"+att.ID, getToken(t, student))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Errorf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
	})
}

func Test_issueApi_templates(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, app.usrRepo, "Hero", "hero01", "hero@test.cd", "2026-A", user.StudentRoles, true)
	mentor := testutil.CreateUser(t, app.usrRepo, "Maji", "mentor01", "maji@test.cd", "2026-A", user.MentorRoles, true)

	newTpl := issue.NewTemplate{
		Title:               "Checker failure report",
		DescriptionTemplate: "Task: ...\nExpected: ...\nGot: ...",
		Category:            issue.CategoryCheckerError,
	}

	var tpl issue.Template

	t.Run("Mentor or admin required", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/issues/templates", getToken(t, student), marchallObj(t, newTpl))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}, rec)
	})

	t.Run("Template created", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/issues/templates", getToken(t, mentor), marchallObj(t, newTpl))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &tpl); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
	})

	t.Run("Anyone authed can browse templates", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/issues/templates", getToken(t, student))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, tpl)}, rec)
	})

	t.Run("Retrieve", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/issues/templates/"+tpl.ID, getToken(t, student))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, tpl)}, rec)
	})

	t.Run("Update", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/issues/templates/"+tpl.ID, getToken(t, mentor),
			marchallObj(t, issue.UpdateTemplate{Title: "Checker failure"}))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("Delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/issues/templates/"+tpl.ID, getToken(t, mentor))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Errorf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
	})
}

func Test_issueApi_statsAndOverdue(t *testing.T) {
	app := setup(t)
	courseID, projectID, _ := seedCatalog(t, app)

	student := testutil.CreateUser(t, app.usrRepo, "Hero", "hero01", "hero@test.cd", "2026-A", user.StudentRoles, true)
	mentor := testutil.CreateUser(t, app.usrRepo, "Maji", "mentor01", "maji@test.cd", "2026-A", user.MentorRoles, true)

	now := time.Now().UTC()
	// well past the high urgency first response target
	stale := testutil.CreateIssue(t, app.issueRepo, issue.Issue{
		Title: "stale", Description: "d", Category: issue.CategoryCheckerError, Urgency: issue.UrgencyHigh,
		ReportedBy: student.ID, CourseID: courseID, ProjectID: projectID, Cohort: "2026-A",
		CreatedAt: now.Add(-48 * time.Hour), UpdatedAt: now.Add(-48 * time.Hour),
	})
	testutil.CreateIssue(t, app.issueRepo, issue.Issue{
		Title: "fresh", Description: "d", Category: issue.CategoryTypo, Urgency: issue.UrgencyLow,
		ReportedBy: student.ID, CourseID: courseID, ProjectID: projectID, Cohort: "2026-A",
	})
	testutil.CreateIssue(t, app.issueRepo, issue.Issue{
		Title: "done", Description: "d", Category: issue.CategoryTypo, Status: issue.StatusResolved,
		ReportedBy: student.ID, CourseID: courseID, ProjectID: projectID, Cohort: "2026-A",
		CreatedAt: now.Add(-2 * time.Hour), FirstResponseAt: now.Add(-time.Hour), ResolvedAt: now,
	})

	t.Run("Overdue lists only late unresolved issues", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/issues/overdue", getToken(t, mentor))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, stale)}, rec)
	})

	t.Run("Stats", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/issues/stats", getToken(t, mentor))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var stats issue.Stats
		if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if stats.Total != 3 {
			t.Errorf("total = %d; want 3", stats.Total)
		}
		if stats.ByStatus[issue.StatusOpen] != 2 || stats.ByStatus[issue.StatusResolved] != 1 {
			t.Errorf("unexpected by_status: %+v", stats.ByStatus)
		}
		if stats.OpenOverdue != 1 {
			t.Errorf("open_overdue = %d; want 1", stats.OpenOverdue)
		}
		if stats.AvgResolution == 0 {
			t.Error("avg_resolution not computed")
		}
	})

	t.Run("Stats requires mentor or admin", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/issues/stats", getToken(t, student))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusForbidden)
		}
	})
}

// newUploadRequest builds a multipart request with a single "file" part.
func newUploadRequest(t *testing.T, path, token, filename, contentType string, content []byte) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	hdr := make(map[string][]string)
	hdr["Content-Disposition"] = []string{`form-data; name="file"; filename="` + filename + `"`}
	hdr["Content-Type"] = []string{contentType}
	part, err := w.CreatePart(hdr)
	if err != nil {
		t.Fatalf("CreatePart(): %v", err)
	}
	if _, err = io.Copy(part, bytes.NewReader(content)); err != nil {
		t.Fatalf("writing part: %v", err)
	}
	if err = w.Close(); err != nil {
		t.Fatalf("closing writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}
