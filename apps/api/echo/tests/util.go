package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/shida/apps/api/echo"
	"github.com/trezcool/shida/core"
	"github.com/trezcool/shida/core/course"
	"github.com/trezcool/shida/core/issue"
	"github.com/trezcool/shida/core/kb"
	"github.com/trezcool/shida/core/notification"
	"github.com/trezcool/shida/core/user"
	emailsvc "github.com/trezcool/shida/services/email"
	inmemdb "github.com/trezcool/shida/storage/database/inmem"
	"github.com/trezcool/shida/storage/filestore"
	testutil "github.com/trezcool/shida/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

func testCtx() context.Context { return context.Background() }

type testApp struct {
	server *echoapi.Server
	conf   *core.Config

	usrRepo   user.Repository
	crsRepo   course.Repository
	issueRepo issue.Repository
	kbRepo    kb.Repository
	notifRepo notification.Repository

	usrSvc   user.Service
	issueSvc issue.Service
	notifSvc notification.Service
}

// setup wires a server over fresh in-memory repositories.
func setup(t *testing.T) *testApp {
	t.Helper()

	db := inmemdb.NewDB()
	app := &testApp{
		conf:      conf,
		usrRepo:   inmemdb.NewUserRepository(db),
		crsRepo:   inmemdb.NewCourseRepository(db),
		issueRepo: inmemdb.NewIssueRepository(db),
		kbRepo:    inmemdb.NewKBRepository(db),
		notifRepo: inmemdb.NewNotificationRepository(db),
	}

	emailsvc.ClearSentMessages()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)

	app.usrSvc = user.NewServiceMock(nil, app.usrRepo, mailSvc, conf)
	app.notifSvc = notification.NewService(app.notifRepo, app.usrSvc, mailSvc, conf)
	app.issueSvc = issue.NewService(app.issueRepo, app.notifSvc, filestore.NewMemoryStorage(), conf)
	crsSvc := course.NewService(app.crsRepo)
	kbSvc := kb.NewService(app.kbRepo, app.issueSvc)

	app.server = echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:           conf,
			Logger:         testutil.NewLogger(),
			UserSvc:        app.usrSvc,
			CourseSvc:      crsSvc,
			IssueSvc:       app.issueSvc,
			KBSvc:          kbSvc,
			NotifSvc:       app.notifSvc,
			Validate:       validate,
			Translator:     translator,
			DisableReqLogs: true,
		},
	)
	return app
}

func newValidator() (*validator.Validate, ut.Translator) {
	v := validator.New()
	tr := newTranslator()
	core.InitValidators(v, tr)
	user.InitValidators(v, tr)
	issue.InitValidators(v, tr)
	return v, tr
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()

	claims := echoapi.GetUserClaims(usr, conf)
	token, err := echoapi.GenerateToken(claims, conf)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()

	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	t.Helper()

	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	if l1, ok := j1.([]interface{}); ok {
		if l2, ok := j2.([]interface{}); ok {
			return assert.ElementsMatch(t, l1, l2), nil
		}
	}
	return false, nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()

	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
