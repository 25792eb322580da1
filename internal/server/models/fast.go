package models

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// EmotionalStatus records how the user felt when the fast ended.
type EmotionalStatus string

const (
	StatusEnergized   EmotionalStatus = "energized"
	StatusSatisfied   EmotionalStatus = "satisfied"
	StatusChallenging EmotionalStatus = "challenging"
	StatusDifficult   EmotionalStatus = "difficult"
)

// EmotionalStatuses lists the valid values in form order.
var EmotionalStatuses = []EmotionalStatus{
	StatusEnergized,
	StatusSatisfied,
	StatusChallenging,
	StatusDifficult,
}

// Valid reports whether s is one of the known statuses.
func (s EmotionalStatus) Valid() bool {
	switch s {
	case StatusEnergized, StatusSatisfied, StatusChallenging, StatusDifficult:
		return true
	}
	return false
}

// Display returns the human-readable label shown on pages and in exports.
func (s EmotionalStatus) Display() string {
	switch s {
	case StatusEnergized:
		return "Energized"
	case StatusSatisfied:
		return "Satisfied"
	case StatusChallenging:
		return "Challenging"
	case StatusDifficult:
		return "Difficult"
	}
	return ""
}

const MaxCommentsLength = 128

// Fast is a single fasting period. A nil EndTime means the fast is still
// running; at most one such row may exist per user.
type Fast struct {
	ID              string
	UserID          string
	StartTime       time.Time
	EndTime         *time.Time
	EmotionalStatus EmotionalStatus
	Comments        string
	ArchivedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsActive reports whether the fast is still running.
func (f *Fast) IsActive() bool {
	return f.EndTime == nil
}

// Validate checks field-level constraints before persistence. The
// one-active-fast-per-user invariant needs a repository lookup and is
// enforced by the service inside the same transaction as the write.
func (f *Fast) Validate() error {
	var errs ValidationErrors

	if f.StartTime.IsZero() {
		errs = append(errs, &ValidationError{Field: "start_time", Message: "Start time is required."})
	}

	if f.EndTime != nil && !f.EndTime.After(f.StartTime) {
		errs = append(errs, &ValidationError{Field: "end_time", Message: "End time must be after start time."})
	}

	if utf8.RuneCountInString(f.Comments) > MaxCommentsLength {
		errs = append(errs, &ValidationError{Field: "comments", Message: "Comments cannot exceed 128 characters."})
	}

	if f.EndTime != nil && f.EmotionalStatus == "" {
		errs = append(errs, &ValidationError{Field: "emotional_status", Message: "Emotional status is required when ending a fast."})
	}

	if f.EmotionalStatus != "" && !f.EmotionalStatus.Valid() {
		errs = append(errs, &ValidationError{Field: "emotional_status", Message: "Select a valid emotional status."})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Duration is end minus start for completed fasts, zero otherwise.
func (f *Fast) Duration() time.Duration {
	if f.EndTime == nil {
		return 0
	}
	return f.EndTime.Sub(f.StartTime)
}

// Elapsed is the time from start until now, for active fasts.
func (f *Fast) Elapsed(now time.Time) time.Duration {
	return now.Sub(f.StartTime)
}

// DurationSeconds returns the completed duration in whole seconds,
// 0 for active fasts.
func (f *Fast) DurationSeconds() int64 {
	return int64(f.Duration().Seconds())
}

// ElapsedSeconds returns the elapsed time in whole seconds.
func (f *Fast) ElapsedSeconds(now time.Time) int64 {
	return int64(f.Elapsed(now).Seconds())
}

// DurationHours formats the completed duration as "Hh Mm",
// or "" for active fasts.
func (f *Fast) DurationHours() string {
	if f.EndTime == nil {
		return ""
	}
	return FormatHoursMinutes(f.Duration())
}

// ElapsedHours formats the elapsed time as "Hh Mm".
func (f *Fast) ElapsedHours(now time.Time) string {
	return FormatHoursMinutes(f.Elapsed(now))
}

// FormatHoursMinutes renders d as "Hh Mm" with floor division at the hour
// and minute boundaries, so 16h0m1s still reads "16h 0m".
func FormatHoursMinutes(d time.Duration) string {
	totalSeconds := int64(d.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
