package model

import "time"

// GuidanceState tracks one user's attempt at one template. It references
// the template by id only; the template itself is always looked up
// through the catalog.
type GuidanceState struct {
	ID               string     `bson:"_id" json:"id"`
	UserID           string     `bson:"user_id" json:"user_id"`
	TemplateID       string     `bson:"template_id" json:"template_id"`
	CurrentStepIndex int        `bson:"current_step_index" json:"current_step_index"`
	CompletedSteps   []string   `bson:"completed_steps" json:"completed_steps"`
	CompletedAt      *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	CreatedAt        time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `bson:"updated_at" json:"updated_at"`
}

// IsCompleted reports whether the guidance reached its terminal state.
func (g *GuidanceState) IsCompleted() bool {
	return g.CompletedAt != nil
}

// HasCompletedStep reports whether stepID is in the completed set.
// CompletedSteps has set semantics; insertion order is irrelevant.
func (g *GuidanceState) HasCompletedStep(stepID string) bool {
	for _, id := range g.CompletedSteps {
		if id == stepID {
			return true
		}
	}
	return false
}
