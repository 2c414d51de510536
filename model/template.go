package model

// ProjectTemplate is an immutable catalog entry describing a guided first
// project. Templates are owned by the catalog and never mutated by the
// guidance or analytics code.
type ProjectTemplate struct {
	ID               string        `bson:"_id" json:"id"`
	Name             string        `bson:"name" json:"name"`
	Description      string        `bson:"description" json:"description"`
	CraftType        string        `bson:"craft_type" json:"craft_type"`
	Difficulty       string        `bson:"difficulty" json:"difficulty"` // beginner, intermediate, advanced
	EstimatedMinutes int           `bson:"estimated_minutes" json:"estimated_minutes"`
	Steps            []ProjectStep `bson:"steps" json:"steps"`
	Materials        []string      `bson:"materials" json:"materials"`
	Tools            []string      `bson:"tools" json:"tools"`
	// Historical completion rate precomputed by the catalog pipeline.
	CompletionRate float64 `bson:"completion_rate" json:"completion_rate"`
}

// ProjectStep is one ordered step of a template. Step IDs are unique
// within their template.
type ProjectStep struct {
	ID               string   `bson:"id" json:"id"`
	Title            string   `bson:"title" json:"title"`
	Description      string   `bson:"description" json:"description"`
	EstimatedMinutes int      `bson:"estimated_minutes" json:"estimated_minutes"`
	Instructions     []string `bson:"instructions" json:"instructions"`
	PhotoRequired    bool     `bson:"photo_required" json:"photo_required"`
	Tips             []string `bson:"tips,omitempty" json:"tips,omitempty"`
	CommonMistakes   []string `bson:"common_mistakes,omitempty" json:"common_mistakes,omitempty"`
	SafetyNotes      []string `bson:"safety_notes,omitempty" json:"safety_notes,omitempty"`
}

// StepIndex returns the position of stepID in the template's step order,
// or -1 if the step does not belong to the template.
func (t *ProjectTemplate) StepIndex(stepID string) int {
	for i, step := range t.Steps {
		if step.ID == stepID {
			return i
		}
	}
	return -1
}

// HasStep reports whether stepID belongs to the template.
func (t *ProjectTemplate) HasStep(stepID string) bool {
	return t.StepIndex(stepID) >= 0
}
