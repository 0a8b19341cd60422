package notification

import (
	"time"
)

// Types
const (
	TypeIssueCreated  = "issue_created"
	TypeIssueUpdated  = "issue_updated"
	TypeIssueResolved = "issue_resolved"
	TypeIssueAssigned = "issue_assigned"
	TypeCommentAdded  = "comment_added"
	TypeFeedbackAdded = "feedback_added"
)

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	IssueID   string    `json:"issue_id"` // empty: not issue-bound
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type QueryFilter struct {
	IsRead *bool  `query:"is_read"`
	Type   string `query:"type"`
}
