package usecase

import (
	"context"
	"fmt"
	"main/model"
	"sync"
	"time"

	"github.com/google/uuid"
)

// GuidanceStore is the persistence contract for per-user guidance state.
type GuidanceStore interface {
	ReadGuidanceState(ctx context.Context, userID, templateID string) (*model.GuidanceState, error)
	ReadActiveGuidance(ctx context.Context, userID string) (*model.GuidanceState, error)
	WriteGuidanceState(ctx context.Context, state *model.GuidanceState) error
	ReadUserGuidances(ctx context.Context, userID string) ([]*model.GuidanceState, error)
}

// EventStore is the append-only event record contract.
type EventStore interface {
	AppendEvent(ctx context.Context, event *model.EventRecord) error
}

// TemplateCatalog is the read-only template catalog contract.
type TemplateCatalog interface {
	GetTemplate(ctx context.Context, templateID string) (*model.ProjectTemplate, error)
	ListTemplates(ctx context.Context) ([]*model.ProjectTemplate, error)
}

// GuidanceService owns the guidance progress state machine. Mutations
// are serialized per user; reads never take the per-user lock and may
// observe a slightly stale snapshot.
type GuidanceService struct {
	Guidance GuidanceStore
	Events   EventStore
	Catalog  TemplateCatalog

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

func NewGuidanceService(guidance GuidanceStore, events EventStore, catalog TemplateCatalog) *GuidanceService {
	return &GuidanceService{
		Guidance:  guidance,
		Events:    events,
		Catalog:   catalog,
		userLocks: make(map[string]*sync.Mutex),
	}
}

// userLock returns the mutex serializing mutations for one user.
// Different users mutate fully in parallel.
func (s *GuidanceService) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.userLocks[userID] = lock
	}
	return lock
}

// StartGuidance creates a guidance record for the user on the template
// and emits a ProjectStarted event. Starting a template the user already
// has in progress is idempotent and returns the existing state
// unchanged.
func (s *GuidanceService) StartGuidance(ctx context.Context, userID, templateID string) (*model.GuidanceState, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	template, err := s.Catalog.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	if template == nil {
		return nil, ErrTemplateNotFound
	}

	existing, err := s.Guidance.ReadGuidanceState(ctx, userID, templateID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	if existing != nil {
		// Restarting is idempotent, and a finished attempt at this
		// template stays on record.
		return existing, nil
	}

	now := time.Now().UTC()
	state := &model.GuidanceState{
		ID:               uuid.New().String(),
		UserID:           userID,
		TemplateID:       templateID,
		CurrentStepIndex: 0,
		CompletedSteps:   []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.Guidance.WriteGuidanceState(ctx, state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	if err := s.Events.AppendEvent(ctx, &model.EventRecord{
		UserID:     userID,
		Kind:       model.EventProjectStarted,
		TemplateID: templateID,
		Timestamp:  now,
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	return state, nil
}

// CompleteStep adds the step to the completed set and advances the
// pointer to the first step, in template order, not yet completed. Steps
// may be completed out of order; the pointer never skips past an
// incomplete step. When every step is complete the guidance transitions
// to its terminal state and the completion timestamp is stamped exactly
// once. Every call that passes validation emits a StepCompleted event,
// including re-completions.
func (s *GuidanceService) CompleteStep(ctx context.Context, userID, stepID string) (*model.GuidanceState, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	state, err := s.Guidance.ReadActiveGuidance(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	if state == nil {
		return s.recompleteAfterFinish(ctx, userID, stepID)
	}

	template, err := s.Catalog.GetTemplate(ctx, state.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	if template == nil {
		return nil, ErrTemplateNotFound
	}
	if !template.HasStep(stepID) {
		return nil, ErrUnknownStep
	}

	if !state.HasCompletedStep(stepID) {
		state.CompletedSteps = append(state.CompletedSteps, stepID)
	}
	state.CurrentStepIndex = nextIncompleteIndex(template, state)

	now := time.Now().UTC()
	completedNow := false
	if state.CurrentStepIndex == len(template.Steps) && state.CompletedAt == nil {
		state.CompletedAt = &now
		completedNow = true
	}

	if err := s.Guidance.WriteGuidanceState(ctx, state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	if err := s.Events.AppendEvent(ctx, &model.EventRecord{
		UserID:     userID,
		Kind:       model.EventStepCompleted,
		StepID:     stepID,
		TemplateID: state.TemplateID,
		Timestamp:  now,
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	if completedNow {
		if err := s.Events.AppendEvent(ctx, &model.EventRecord{
			UserID:     userID,
			Kind:       model.EventProjectCompleted,
			TemplateID: state.TemplateID,
			Timestamp:  now,
		}); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
		}
	}
	return state, nil
}

// recompleteAfterFinish handles CompleteStep calls arriving after the
// guidance reached its terminal state. Re-completing a step of the
// finished guidance is a no-op on state, keeps the stored completion
// timestamp, and still emits a StepCompleted event for analytics.
func (s *GuidanceService) recompleteAfterFinish(ctx context.Context, userID, stepID string) (*model.GuidanceState, error) {
	states, err := s.Guidance.ReadUserGuidances(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	if len(states) == 0 {
		return nil, ErrNoActiveGuidance
	}

	latest := states[0]
	if !latest.IsCompleted() {
		return nil, ErrNoActiveGuidance
	}

	template, err := s.Catalog.GetTemplate(ctx, latest.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	if template == nil || !template.HasStep(stepID) {
		return nil, ErrUnknownStep
	}

	if err := s.Events.AppendEvent(ctx, &model.EventRecord{
		UserID:     userID,
		Kind:       model.EventStepCompleted,
		StepID:     stepID,
		TemplateID: latest.TemplateID,
		Timestamp:  time.Now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	return latest, nil
}

// nextIncompleteIndex returns the index of the first step, in template
// order, whose id is not in the completed set, or the step count when
// every step is complete.
func nextIncompleteIndex(template *model.ProjectTemplate, state *model.GuidanceState) int {
	for i, step := range template.Steps {
		if !state.HasCompletedStep(step.ID) {
			return i
		}
	}
	return len(template.Steps)
}

// GetProgress returns the user's active guidance, or nil when nothing is
// in progress. Pure read; never mutates.
func (s *GuidanceService) GetProgress(ctx context.Context, userID string) (*model.GuidanceState, error) {
	state, err := s.Guidance.ReadActiveGuidance(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	return state, nil
}

// CurrentStep returns the step at the guidance pointer. The second
// return value is true when the template is complete and there is no
// current step.
func CurrentStep(state *model.GuidanceState, template *model.ProjectTemplate) (*model.ProjectStep, bool) {
	if state.CurrentStepIndex >= len(template.Steps) {
		return nil, true
	}
	step := template.Steps[state.CurrentStepIndex]
	return &step, false
}

// RecordStepView appends a StepViewed event for a step of the user's
// active guidance.
func (s *GuidanceService) RecordStepView(ctx context.Context, userID, stepID string) error {
	return s.appendStepEvent(ctx, userID, stepID, model.EventStepViewed)
}

// SkipStep appends a StepSkipped event. Skipping never touches the
// completed set; a user can skip a step and complete it later, and both
// facts remain on record.
func (s *GuidanceService) SkipStep(ctx context.Context, userID, stepID string) error {
	return s.appendStepEvent(ctx, userID, stepID, model.EventStepSkipped)
}

func (s *GuidanceService) appendStepEvent(ctx context.Context, userID, stepID string, kind model.EventKind) error {
	state, err := s.Guidance.ReadActiveGuidance(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	if state == nil {
		return ErrNoActiveGuidance
	}

	template, err := s.Catalog.GetTemplate(ctx, state.TemplateID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	if template == nil {
		return ErrTemplateNotFound
	}
	if !template.HasStep(stepID) {
		return ErrUnknownStep
	}

	if err := s.Events.AppendEvent(ctx, &model.EventRecord{
		UserID:     userID,
		Kind:       kind,
		StepID:     stepID,
		TemplateID: state.TemplateID,
		Timestamp:  time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	return nil
}

// CompleteTutorial records that the user finished the onboarding
// tutorial.
func (s *GuidanceService) CompleteTutorial(ctx context.Context, userID string) error {
	if err := s.Events.AppendEvent(ctx, &model.EventRecord{
		UserID:    userID,
		Kind:      model.EventTutorialCompleted,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	return nil
}

// GetProjectTemplates is a catalog passthrough.
func (s *GuidanceService) GetProjectTemplates(ctx context.Context) ([]*model.ProjectTemplate, error) {
	templates, err := s.Catalog.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	return templates, nil
}

// GetRecommendedTemplates filters the catalog by the user's declared
// craft interests and skill level. When nothing matches, the beginner
// subset (or failing that the full catalog) is returned instead of an
// empty list, so an empty response always means an empty catalog.
func (s *GuidanceService) GetRecommendedTemplates(ctx context.Context, profile model.UserProfile) ([]*model.ProjectTemplate, error) {
	templates, err := s.Catalog.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	interests := make(map[string]bool)
	for _, craft := range profile.CraftInterests {
		interests[craft] = true
	}

	var matched []*model.ProjectTemplate
	for _, t := range templates {
		if len(interests) > 0 && !interests[t.CraftType] {
			continue
		}
		if !difficultyAllowed(t.Difficulty, profile.SkillLevel) {
			continue
		}
		matched = append(matched, t)
	}
	if len(matched) > 0 {
		return matched, nil
	}

	var beginner []*model.ProjectTemplate
	for _, t := range templates {
		if t.Difficulty == "beginner" {
			beginner = append(beginner, t)
		}
	}
	if len(beginner) > 0 {
		return beginner, nil
	}
	return templates, nil
}

func difficultyAllowed(difficulty, skill string) bool {
	switch skill {
	case "beginner":
		return difficulty == "beginner"
	case "intermediate":
		return difficulty == "beginner" || difficulty == "intermediate"
	default:
		// Advanced or undeclared skill sees the whole catalog.
		return true
	}
}
