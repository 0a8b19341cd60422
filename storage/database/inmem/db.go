// Package inmemdb provides map-backed repositories for tests and local hacking.
package inmemdb

import (
	"sync"

	"github.com/trezcool/shida/core/course"
	"github.com/trezcool/shida/core/issue"
	"github.com/trezcool/shida/core/kb"
	"github.com/trezcool/shida/core/notification"
	"github.com/trezcool/shida/core/user"
)

type DB struct {
	mutex sync.RWMutex

	users         map[string]*user.User
	courses       map[string]*course.Course
	projects      map[string]*course.Project
	tasks         map[string]*course.Task
	issues        map[string]*issue.Issue
	comments      map[string]*issue.Comment
	feedbacks     map[string]*issue.Feedback
	history       map[string]*issue.HistoryEntry
	attachments   map[string]*issue.Attachment
	templates     map[string]*issue.Template
	articles      map[string]*kb.Article
	notifications map[string]*notification.Notification
}

func NewDB() *DB {
	return &DB{
		users:         make(map[string]*user.User),
		courses:       make(map[string]*course.Course),
		projects:      make(map[string]*course.Project),
		tasks:         make(map[string]*course.Task),
		issues:        make(map[string]*issue.Issue),
		comments:      make(map[string]*issue.Comment),
		feedbacks:     make(map[string]*issue.Feedback),
		history:       make(map[string]*issue.HistoryEntry),
		attachments:   make(map[string]*issue.Attachment),
		templates:     make(map[string]*issue.Template),
		articles:      make(map[string]*kb.Article),
		notifications: make(map[string]*notification.Notification),
	}
}
