package tests

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/trezcool/shida/core/issue"
	"github.com/trezcool/shida/core/notification"
	"github.com/trezcool/shida/core/user"
	emailsvc "github.com/trezcool/shida/services/email"
	testutil "github.com/trezcool/shida/tests"
)

func Test_notificationApi_issueFanOut(t *testing.T) {
	app := setup(t)
	courseID, projectID, _ := seedCatalog(t, app)

	student := testutil.CreateUser(t, app.usrRepo, "Hero", "hero01", "hero@test.cd", "2026-A", user.StudentRoles, true)
	mentor := testutil.CreateUser(t, app.usrRepo, "Maji", "mentor01", "maji@test.cd", "2026-A", user.MentorRoles, true)
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin01", "admin@test.cd", "", user.AdminRoles, true)

	unread := func(t *testing.T, usr user.User) int {
		t.Helper()
		req, rec := newAuthRequest(http.MethodGet, "/v1/notifications/unread-count", getToken(t, usr))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("unread-count failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var data struct {
			Unread int `json:"unread"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &data); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		return data.Unread
	}

	// reporting an issue notifies the cohort's triagers
	req, rec := newAuthRequest(http.MethodPost, "/v1/issues", getToken(t, student),
		marchallObj(t, issue.NewIssue{
			Title:       "Checker rejects valid solution",
			Description: "The checker fails on trailing whitespace.",
			Category:    issue.CategoryCheckerError,
			CourseID:    courseID,
			ProjectID:   projectID,
			WeekNumber:  1,
		}))
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("issue create failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var iss issue.Issue
	if err := json.Unmarshal(rec.Body.Bytes(), &iss); err != nil {
		t.Fatalf("json.Unmarshal(): %v", err)
	}

	if got := unread(t, mentor); got != 1 {
		t.Errorf("mentor unread = %d; want 1", got)
	}
	if got := unread(t, admin); got != 1 {
		t.Errorf("admin unread = %d; want 1", got)
	}
	if got := unread(t, student); got != 0 {
		t.Errorf("reporter unread = %d; want 0", got)
	}
	if len(emailsvc.SentMessages) == 0 {
		t.Error("expected notification emails")
	}

	// resolving notifies the reporter
	req, rec = newAuthRequest(http.MethodPut, "/v1/issues/"+iss.ID, getToken(t, mentor),
		marchallObj(t, issue.UpdateIssue{Status: issue.StatusResolved}))
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("issue update failed! code = %v; body %s", rec.Code, rec.Body.String())
	}

	if got := unread(t, student); got != 1 {
		t.Errorf("reporter unread after resolve = %d; want 1", got)
	}

	// the reporter's inbox holds the status change
	req, rec = newAuthRequest(http.MethodGet, "/v1/notifications", getToken(t, student))
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("inbox failed! code = %v; body %s", rec.Code, rec.Body.String())
	}
	var notifs []notification.Notification
	if err := json.Unmarshal(rec.Body.Bytes(), &notifs); err != nil {
		t.Fatalf("json.Unmarshal(): %v", err)
	}
	if len(notifs) != 1 || notifs[0].Type != notification.TypeIssueUpdated || notifs[0].IssueID != iss.ID {
		t.Errorf("unexpected inbox: %+v", notifs)
	}
}

func Test_notificationApi_inbox(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, app.usrRepo, "Hero", "hero01", "hero@test.cd", "2026-A", user.StudentRoles, true)
	other := testutil.CreateUser(t, app.usrRepo, "Other", "other01", "other@test.cd", "2026-A", user.StudentRoles, true)
	token := getToken(t, student)

	newNotif := func(userID, msg, typ string) notification.Notification {
		t.Helper()
		notif, err := app.notifRepo.CreateNotification(testCtx(), notification.Notification{
			UserID:  userID,
			Message: msg,
			Type:    typ,
		})
		if err != nil {
			t.Fatalf("CreateNotification(): %v", err)
		}
		return notif
	}
	n1 := newNotif(student.ID, "New comment on issue: X", notification.TypeCommentAdded)
	n2 := newNotif(student.ID, "Issue resolved: X", notification.TypeIssueResolved)
	foreign := newNotif(other.ID, "New issue reported: Y", notification.TypeIssueCreated)

	t.Run("Auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/notifications")
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("Own notifications only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/notifications", token)
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, n1, n2)}, rec)
	})

	t.Run("Filter by type", func(t *testing.T) {
		path := "/v1/notifications?" + url.Values{"type": {notification.TypeIssueResolved}}.Encode()
		req, rec := newAuthRequest(http.MethodGet, path, token)
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, n2)}, rec)
	})

	t.Run("Others' notifications are masked", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/notifications/"+foreign.ID, token)
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		}, rec)
	})

	t.Run("Mark one read", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/notifications/"+n1.ID+"/mark-read", token)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var got notification.Notification
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if !got.IsRead {
			t.Error("notification not marked read")
		}
	})

	t.Run("Unread filter", func(t *testing.T) {
		path := "/v1/notifications?" + url.Values{"is_read": {"false"}}.Encode()
		req, rec := newAuthRequest(http.MethodGet, path, token)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var notifs []notification.Notification
		if err := json.Unmarshal(rec.Body.Bytes(), &notifs); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if len(notifs) != 1 || notifs[0].ID != n2.ID {
			t.Errorf("unexpected unread list: %+v", notifs)
		}
	})

	t.Run("Mark all read", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/notifications/mark-all-read", token)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var data struct {
			MarkedRead int `json:"marked_read"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &data); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if data.MarkedRead != 1 {
			t.Errorf("marked_read = %d; want 1", data.MarkedRead)
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/notifications/unread-count", token)
		app.server.ServeHTTP(rec, req)
		var count struct {
			Unread int `json:"unread"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &count); err != nil {
			t.Fatalf("json.Unmarshal(): %v", err)
		}
		if count.Unread != 0 {
			t.Errorf("unread = %d; want 0", count.Unread)
		}
	})
}
