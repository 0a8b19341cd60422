package inmem

import (
	"reflect"
	"testing"
	"time"

	"github.com/trezcool/shida/core"
	"github.com/trezcool/shida/core/issue"
)

func Test_sortIssues(t *testing.T) {
	t0 := time.Date(2026, 8, 1, 8, 0, 0, 0, time.UTC)
	mk := func(id, status, urgency string, created time.Time) issue.Issue {
		return issue.Issue{ID: id, Status: status, Urgency: urgency, CreatedAt: created, UpdatedAt: created}
	}

	tests := []struct {
		name     string
		issues   []issue.Issue
		ordering []core.DBOrdering
		wantIDs  []string
	}{
		{
			name: "newest first by default",
			issues: []issue.Issue{
				mk("a", issue.StatusOpen, issue.UrgencyLow, t0),
				mk("b", issue.StatusOpen, issue.UrgencyLow, t0.Add(time.Hour)),
			},
			wantIDs: []string{"b", "a"},
		},
		{
			name: "single field",
			issues: []issue.Issue{
				mk("a", issue.StatusOpen, issue.UrgencyMedium, t0),
				mk("b", issue.StatusOpen, issue.UrgencyHigh, t0),
				mk("c", issue.StatusOpen, issue.UrgencyLow, t0),
			},
			ordering: []core.DBOrdering{{Field: "urgency", Ascending: true}},
			wantIDs:  []string{"b", "c", "a"}, // lexical: high < low < medium
		},
		{
			name: "later terms break ties",
			issues: []issue.Issue{
				mk("a", issue.StatusOpen, issue.UrgencyLow, t0.Add(time.Hour)),
				mk("b", issue.StatusOpen, issue.UrgencyLow, t0),
				mk("c", issue.StatusInProgress, issue.UrgencyLow, t0.Add(2*time.Hour)),
			},
			ordering: []core.DBOrdering{{Field: "status", Ascending: true}, {Field: "created_at"}},
			wantIDs:  []string{"c", "a", "b"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sortIssues(tt.issues, tt.ordering)

			gotIDs := make([]string, 0, len(tt.issues))
			for _, iss := range tt.issues {
				gotIDs = append(gotIDs, iss.ID)
			}
			if !reflect.DeepEqual(gotIDs, tt.wantIDs) {
				t.Errorf("order = %v, want %v", gotIDs, tt.wantIDs)
			}
		})
	}
}
