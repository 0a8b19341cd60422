// Package testutil provides helpers shared by the test suites.
package testutil

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/trezcool/shida/core"
	"github.com/trezcool/shida/core/course"
	"github.com/trezcool/shida/core/issue"
	"github.com/trezcool/shida/core/user"
)

const DefaultPassword = "LePassword123!"

// NewConfig returns an app config suitable for tests.
func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.Debug = true
	conf.TestMode = true
	return conf
}

// Logger is a plain stdout core.Logger for tests; error reporting
// services stay out of the test suite.
type Logger struct {
	std *log.Logger
}

var _ core.Logger = (*Logger)(nil)

func NewLogger() *Logger {
	return &Logger{std: log.New(os.Stdout, "TEST : ", log.LstdFlags)}
}

func (l Logger) print(msg string, args []interface{}) {
	l.std.Println(msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l Logger) Debug(msg string, args ...interface{}) { l.print(msg, args) }
func (l Logger) Info(msg string, args ...interface{})  { l.print(msg, args) }
func (l Logger) Warn(msg string, args ...interface{})  { l.print(msg, args) }
func (l Logger) Error(msg string, args ...interface{}) { l.print(msg, args) }
func (l Logger) Fatal(msg string, args ...interface{}) { l.print(msg, args); l.std.Fatal(msg) }

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, cohort string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	now := time.Now().UTC()
	if len(createdAt) > 0 {
		now = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Cohort:    cohort,
		Roles:     roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr.SetActive(isActive)
	if err := usr.SetPassword(DefaultPassword); err != nil {
		t.Fatalf("SetPassword(): %v", err)
	}

	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

func CreateCourse(t *testing.T, repo course.Repository, name string, weeks int) course.Course {
	t.Helper()

	now := time.Now().UTC()
	crs, err := repo.CreateCourse(context.Background(), course.Course{
		Name:            name,
		DurationInWeeks: weeks,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		t.Fatalf("CreateCourse(): %v", err)
	}
	return crs
}

func CreateProject(t *testing.T, repo course.Repository, courseID, name string, week int) course.Project {
	t.Helper()

	now := time.Now().UTC()
	prj, err := repo.CreateProject(context.Background(), course.Project{
		CourseID:   courseID,
		Name:       name,
		WeekNumber: week,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("CreateProject(): %v", err)
	}
	return prj
}

func CreateTask(t *testing.T, repo course.Repository, projectID string, number int, title string) course.Task {
	t.Helper()

	now := time.Now().UTC()
	tsk, err := repo.CreateTask(context.Background(), course.Task{
		ProjectID:  projectID,
		TaskNumber: number,
		Title:      title,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("CreateTask(): %v", err)
	}
	return tsk
}

// CreateIssue persists iss, defaulting status, urgency and timestamps.
func CreateIssue(t *testing.T, repo issue.Repository, iss issue.Issue) issue.Issue {
	t.Helper()

	now := time.Now().UTC()
	if iss.Status == "" {
		iss.Status = issue.StatusOpen
	}
	if iss.Urgency == "" {
		iss.Urgency = issue.UrgencyMedium
	}
	if iss.Category == "" {
		iss.Category = issue.CategoryOther
	}
	if iss.CreatedAt.IsZero() {
		iss.CreatedAt = now
	}
	if iss.UpdatedAt.IsZero() {
		iss.UpdatedAt = now
	}

	iss, err := repo.CreateIssue(context.Background(), iss)
	if err != nil {
		t.Fatalf("CreateIssue(): %v", err)
	}
	return iss
}
