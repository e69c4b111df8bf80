// Package domain defines the health record model shared by the client core and the API.
package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoMetrics indicates a record carrying no metric values at all.
	ErrNoMetrics = errors.New("record must contain at least one metric")
	// ErrRecordNotFound is returned when a record cannot be located.
	ErrRecordNotFound = errors.New("record not found")
)

// MaxNotesLength caps free-text notes.
const MaxNotesLength = 500

// Mood is the fixed mood enumeration.
type Mood string

const (
	MoodExcellent Mood = "excellent"
	MoodGood      Mood = "good"
	MoodNeutral   Mood = "neutral"
	MoodBad       Mood = "bad"
	MoodTerrible  Mood = "terrible"
)

// Valid reports whether m is one of the known mood values.
func (m Mood) Valid() bool {
	switch m {
	case MoodExcellent, MoodGood, MoodNeutral, MoodBad, MoodTerrible:
		return true
	}
	return false
}

// HealthRecord is a single day-entry of health metrics. Metric fields are
// pointers so that a logged zero (0 steps) stays distinct from "no data".
type HealthRecord struct {
	ID          string     `json:"id,omitempty"`
	UserID      string     `json:"userId"`
	Date        string     `json:"date"` // canonical YYYY-MM-DD, never a timestamp
	CreatedAt   time.Time  `json:"createdAt"`
	Weight      *float64   `json:"weight,omitempty"`
	Steps       *int       `json:"steps,omitempty"`
	WaterIntake *float64   `json:"waterIntake,omitempty"`
	SleepHours  *float64   `json:"sleepHours,omitempty"`
	Systolic    *int       `json:"systolic,omitempty"`
	Diastolic   *int       `json:"diastolic,omitempty"`
	Pulse       *int       `json:"pulse,omitempty"`
	Mood        *Mood      `json:"mood,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	LocalID     string     `json:"localId,omitempty"`
	Synced      bool       `json:"synced"`
}

// ValidationError names the field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// HasMetrics reports whether any metric field is set.
func (r HealthRecord) HasMetrics() bool {
	return r.Weight != nil || r.Steps != nil || r.WaterIntake != nil ||
		r.SleepHours != nil || r.Systolic != nil || r.Diastolic != nil ||
		r.Pulse != nil || r.Mood != nil || r.Notes != nil
}

// Validate checks required fields and metric ranges.
func (r HealthRecord) Validate() error {
	if r.UserID == "" {
		return &ValidationError{Field: "userId", Reason: "required"}
	}
	if !ValidDay(r.Date) {
		return &ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	if !r.HasMetrics() {
		return ErrNoMetrics
	}
	if r.Weight != nil && *r.Weight <= 0 {
		return &ValidationError{Field: "weight", Reason: "must be > 0"}
	}
	if r.Steps != nil && *r.Steps < 0 {
		return &ValidationError{Field: "steps", Reason: "must be >= 0"}
	}
	if r.WaterIntake != nil && *r.WaterIntake < 0 {
		return &ValidationError{Field: "waterIntake", Reason: "must be >= 0"}
	}
	if r.SleepHours != nil && (*r.SleepHours < 0 || *r.SleepHours > 24) {
		return &ValidationError{Field: "sleepHours", Reason: "must be within 0-24"}
	}
	// Blood pressure is paired: both values or neither.
	if (r.Systolic == nil) != (r.Diastolic == nil) {
		return &ValidationError{Field: "bloodPressure", Reason: "systolic and diastolic must be set together"}
	}
	if r.Systolic != nil && (*r.Systolic <= 0 || *r.Diastolic <= 0) {
		return &ValidationError{Field: "bloodPressure", Reason: "must be > 0"}
	}
	if r.Pulse != nil && *r.Pulse <= 0 {
		return &ValidationError{Field: "pulse", Reason: "must be > 0"}
	}
	if r.Mood != nil && !r.Mood.Valid() {
		return &ValidationError{Field: "mood", Reason: "unknown mood value"}
	}
	if r.Notes != nil && len(*r.Notes) > MaxNotesLength {
		return &ValidationError{Field: "notes", Reason: fmt.Sprintf("longer than %d characters", MaxNotesLength)}
	}
	return nil
}

// MetricsEqual reports whether two records carry identical metric values.
// Used by the server-side duplicate check, which only rejects exact same-day
// repeats; differing same-day entries are always legitimate.
func MetricsEqual(a, b HealthRecord) bool {
	return eqFloat(a.Weight, b.Weight) &&
		eqInt(a.Steps, b.Steps) &&
		eqFloat(a.WaterIntake, b.WaterIntake) &&
		eqFloat(a.SleepHours, b.SleepHours) &&
		eqInt(a.Systolic, b.Systolic) &&
		eqInt(a.Diastolic, b.Diastolic) &&
		eqInt(a.Pulse, b.Pulse) &&
		eqMood(a.Mood, b.Mood) &&
		eqString(a.Notes, b.Notes)
}

func eqFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqMood(a, b *Mood) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
