// Package workflow holds the fixed project lifecycle: statuses, roles,
// reviewer role types and the transition policy between statuses.
package workflow

import (
	"sort"
	"strings"
)

// StatusID is the stable numeric identifier of a project status.
type StatusID uint

// Fixed project statuses.
const (
	StatusDraft            StatusID = 1
	StatusSubmitted        StatusID = 2
	StatusUnderReview      StatusID = 3
	StatusChangesRequested StatusID = 4
	StatusApproved         StatusID = 5
	StatusRejected         StatusID = 6
	StatusArchived         StatusID = 7
)

// Status describes one entry of the status catalogue.
type Status struct {
	ID        StatusID
	Code      string
	Name      string
	Color     string
	SortOrder int
}

// StampColumn names the project timestamp column set when a status is entered.
type StampColumn string

// Timestamp columns stamped on transition.
const (
	StampSubmittedAt StampColumn = "submitted_at"
	StampApprovedAt  StampColumn = "approved_at"
	StampArchivedAt  StampColumn = "archived_at"
)

var statuses = map[StatusID]Status{
	StatusDraft:            {ID: StatusDraft, Code: "draft", Name: "Draft", Color: "#9ca3af", SortOrder: 1},
	StatusSubmitted:        {ID: StatusSubmitted, Code: "submitted", Name: "Submitted", Color: "#3b82f6", SortOrder: 2},
	StatusUnderReview:      {ID: StatusUnderReview, Code: "under_review", Name: "Under review", Color: "#f59e0b", SortOrder: 3},
	StatusChangesRequested: {ID: StatusChangesRequested, Code: "changes_requested", Name: "Changes requested", Color: "#f97316", SortOrder: 4},
	StatusApproved:         {ID: StatusApproved, Code: "approved", Name: "Approved", Color: "#10b981", SortOrder: 5},
	StatusRejected:         {ID: StatusRejected, Code: "rejected", Name: "Rejected", Color: "#ef4444", SortOrder: 6},
	StatusArchived:         {ID: StatusArchived, Code: "archived", Name: "Archived", Color: "#6b7280", SortOrder: 7},
}

var stampColumns = map[StatusID]StampColumn{
	StatusSubmitted: StampSubmittedAt,
	StatusApproved:  StampApprovedAt,
	StatusArchived:  StampArchivedAt,
}

// LookupStatus returns the catalogue entry for id.
func LookupStatus(id StatusID) (Status, bool) {
	status, ok := statuses[id]
	return status, ok
}

// StatusByCode resolves a status by its code, case-insensitively.
func StatusByCode(code string) (Status, bool) {
	normalized := strings.ToLower(strings.TrimSpace(code))
	for _, status := range statuses {
		if status.Code == normalized {
			return status, true
		}
	}
	return Status{}, false
}

// Statuses returns the catalogue ordered by sort order.
func Statuses() []Status {
	out := make([]Status, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out
}

// Valid reports whether id belongs to the fixed catalogue.
func (id StatusID) Valid() bool {
	_, ok := statuses[id]
	return ok
}

// Code returns the status code or an empty string for unknown ids.
func (id StatusID) Code() string {
	return statuses[id].Code
}

// Stamps maps statuses to the project timestamp column they set. The
// returned map is a copy.
func Stamps() map[StatusID]StampColumn {
	out := make(map[StatusID]StampColumn, len(stampColumns))
	for id, column := range stampColumns {
		out[id] = column
	}
	return out
}
