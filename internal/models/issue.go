package models

import "time"

// IssueStatus represents the state of an issue.
type IssueStatus string

const (
	IssueStatusPending    IssueStatus = "PENDING"
	IssueStatusOpen       IssueStatus = "OPEN"
	IssueStatusInProgress IssueStatus = "IN_PROGRESS"
	IssueStatusClosed     IssueStatus = "CLOSED"
)

// IssueStatuses lists every known status in workflow order.
var IssueStatuses = []IssueStatus{
	IssueStatusPending,
	IssueStatusOpen,
	IssueStatusInProgress,
	IssueStatusClosed,
}

// Valid reports whether s is one of the known statuses.
func (s IssueStatus) Valid() bool {
	for _, known := range IssueStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Issue is a problem reported by a citizen, filed under exactly one category.
type Issue struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title" validate:"required,min=5,max=255"`
	Description string      `json:"description" validate:"max=1000"`
	Status      IssueStatus `json:"status" validate:"required,oneof=PENDING OPEN IN_PROGRESS CLOSED"`
	CategoryID  int64       `json:"categoryId" validate:"required,gt=0"`
	Category    *Category   `json:"category,omitempty" validate:"-"` // populated on read
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// CategoryRef returns the referenced category id, accepting either the flat
// categoryId field or a nested {"category": {"id": N}} payload.
func (i *Issue) CategoryRef() int64 {
	if i.CategoryID != 0 {
		return i.CategoryID
	}
	if i.Category != nil {
		return i.Category.ID
	}
	return 0
}
