package model

import "time"

// EventKind enumerates the onboarding events the analytics engine folds
// over.
type EventKind string

const (
	EventStepViewed        EventKind = "step_viewed"
	EventStepCompleted     EventKind = "step_completed"
	EventStepSkipped       EventKind = "step_skipped"
	EventTutorialCompleted EventKind = "tutorial_completed"
	EventProjectStarted    EventKind = "project_started"
	EventProjectCompleted  EventKind = "project_completed"
)

// EventRecord is an immutable append-only fact. Records are never updated
// or deleted once written.
type EventRecord struct {
	ID         string    `bson:"_id" json:"id"`
	UserID     string    `bson:"user_id" json:"user_id"`
	Kind       EventKind `bson:"kind" json:"kind"`
	StepID     string    `bson:"step_id,omitempty" json:"step_id,omitempty"`
	TemplateID string    `bson:"template_id,omitempty" json:"template_id,omitempty"`
	Timestamp  time.Time `bson:"timestamp" json:"timestamp"`
}

// EventFilter narrows a read of the event store. Zero values mean "no
// constraint".
type EventFilter struct {
	UserID string
	Kind   EventKind
	From   time.Time
	To     time.Time
}

// TimeRange is an optional window applied to an analytics computation.
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// IsZero reports whether the range places no constraint at all.
func (r TimeRange) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}
