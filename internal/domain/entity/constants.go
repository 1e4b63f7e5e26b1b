package entity

import (
	"errors"
	"time"
)

// DateLayout is the wire format for every day-granular field.
const DateLayout = "2006-01-02"

// Errors shared across the credentialing core
var (
	ErrNotFound             = errors.New("not found")
	ErrDuplicateApplication = errors.New("application already exists for provider and payer")
	ErrConfigurationMissing = errors.New("payer has no workflow template")
	ErrInvalidDate          = errors.New("invalid date")
	ErrTemplateInvalid      = errors.New("invalid workflow template")
)

// Entity type values recorded in status history
const (
	EntityTypeTask        = "task"
	EntityTypeApplication = "application"
)

// History action values
const (
	ActionCreate       = "create"
	ActionStatusChange = "status_change"
	ActionUpdate       = "update"
	ActionDelete       = "delete"
)

// TaskTypeGeneral marks operator-created tasks that are not tied to a payer.
const TaskTypeGeneral = "general"

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a UTC day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, errors.Join(ErrInvalidDate, err)
	}
	return t, nil
}

// FormatDate renders an optional day, returning "" for nil.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

// AddDays returns day d shifted by n calendar days.
func AddDays(d time.Time, n int) time.Time {
	return Day(d).AddDate(0, 0, n)
}

// DatePtr returns a pointer to the UTC day of t.
func DatePtr(t time.Time) *time.Time {
	d := Day(t)
	return &d
}
