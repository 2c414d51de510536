package usecase

import (
	"context"
	"fmt"
	"log"
	"main/model"
	"math"
	"sort"
	"time"
)

// EventReader is the read side of the event store consumed by the
// aggregation engine.
type EventReader interface {
	ReadEvents(ctx context.Context, filter model.EventFilter) ([]*model.EventRecord, error)
}

// SnapshotCache holds the last successfully computed rollup so callers
// keep a usable dashboard while the record store is down.
type SnapshotCache interface {
	SetSnapshot(ctx context.Context, data *model.OnboardingAnalyticsData) error
	GetSnapshot(ctx context.Context) (*model.OnboardingAnalyticsData, error)
}

// AnalyticsService folds the event record set into onboarding rollups.
// The fold is side-effect-free and safe to run concurrently with
// guidance mutations and with itself; its output is correct as of the
// snapshot of records it read.
type AnalyticsService struct {
	Events     EventReader
	Catalog    TemplateCatalog
	Snapshots  SnapshotCache
	Thresholds model.InsightThresholds
}

// GetOnboardingAnalytics recomputes the full rollup for the optional
// time window. On a record store failure the previous cached snapshot is
// returned instead; ErrDataUnavailable only surfaces when there is no
// snapshot to fall back on.
func (s *AnalyticsService) GetOnboardingAnalytics(ctx context.Context, timeRange model.TimeRange) (*model.OnboardingAnalyticsData, error) {
	data, err := s.ComputeAnalytics(ctx, timeRange)
	if err == nil {
		if s.Snapshots != nil && timeRange.IsZero() {
			if cacheErr := s.Snapshots.SetSnapshot(ctx, data); cacheErr != nil {
				log.Printf("Failed to cache analytics snapshot: %v", cacheErr)
			}
		}
		return data, nil
	}

	if s.Snapshots != nil && timeRange.IsZero() {
		cached, cacheErr := s.Snapshots.GetSnapshot(ctx)
		if cacheErr == nil && cached != nil {
			log.Printf("Serving cached analytics snapshot: %v", err)
			return cached, nil
		}
	}
	return nil, err
}

// ComputeAnalytics reads the record set and folds it. Recomputation is
// idempotent; the result is a pure function of the records read.
func (s *AnalyticsService) ComputeAnalytics(ctx context.Context, timeRange model.TimeRange) (*model.OnboardingAnalyticsData, error) {
	events, err := s.Events.ReadEvents(ctx, model.EventFilter{From: timeRange.From, To: timeRange.To})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	templates, err := s.Catalog.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	data := FoldEvents(events, CanonicalSteps(templates))
	data.GeneratedAt = time.Now().UTC()
	return data, nil
}

// CanonicalSteps derives the cross-template step order: templates in
// catalog order, each template's steps in sequence, first occurrence of
// a step id wins. For a catalog with a single onboarding template this
// is exactly that template's order.
func CanonicalSteps(templates []*model.ProjectTemplate) []model.ProjectStep {
	var steps []model.ProjectStep
	seen := make(map[string]bool)
	for _, t := range templates {
		for _, step := range t.Steps {
			if seen[step.ID] {
				continue
			}
			seen[step.ID] = true
			steps = append(steps, step)
		}
	}
	return steps
}

// userFold accumulates one user's slice of the record set.
type userFold struct {
	firstEvent       time.Time
	projectStarted   time.Time
	projectCompleted time.Time
	maxStepPos       int
	hasStepEvent     bool
}

// FoldEvents computes the rollup from a record set and the canonical
// step order. Malformed records (missing user id or timestamp) are
// excluded and tallied rather than failing the whole computation.
func FoldEvents(events []*model.EventRecord, steps []model.ProjectStep) *model.OnboardingAnalyticsData {
	stepPos := make(map[string]int, len(steps))
	for i, step := range steps {
		stepPos[step.ID] = i
	}

	users := make(map[string]*userFold)
	viewers := make(map[string]map[string]bool)
	completers := make(map[string]map[string]bool)
	skippers := make(map[string]map[string]bool)
	skipped := 0

	mark := func(m map[string]map[string]bool, stepID, userID string) {
		set, ok := m[stepID]
		if !ok {
			set = make(map[string]bool)
			m[stepID] = set
		}
		set[userID] = true
	}

	for _, event := range events {
		if event.UserID == "" || event.Timestamp.IsZero() {
			skipped++
			continue
		}

		u, ok := users[event.UserID]
		if !ok {
			u = &userFold{firstEvent: event.Timestamp, maxStepPos: -1}
			users[event.UserID] = u
		}
		if event.Timestamp.Before(u.firstEvent) {
			u.firstEvent = event.Timestamp
		}

		switch event.Kind {
		case model.EventStepViewed:
			mark(viewers, event.StepID, event.UserID)
		case model.EventStepCompleted:
			mark(viewers, event.StepID, event.UserID)
			mark(completers, event.StepID, event.UserID)
		case model.EventStepSkipped:
			mark(skippers, event.StepID, event.UserID)
		case model.EventProjectStarted:
			if u.projectStarted.IsZero() || event.Timestamp.Before(u.projectStarted) {
				u.projectStarted = event.Timestamp
			}
		case model.EventProjectCompleted:
			if u.projectCompleted.IsZero() || event.Timestamp.Before(u.projectCompleted) {
				u.projectCompleted = event.Timestamp
			}
		}

		if pos, ok := stepPos[event.StepID]; ok && isStepEvent(event.Kind) {
			u.hasStepEvent = true
			if pos > u.maxStepPos {
				u.maxStepPos = pos
			}
		}
	}

	data := &model.OnboardingAnalyticsData{
		TotalUsers:     len(users),
		SkippedRecords: skipped,
	}

	// Completion statistics
	var completionMinutes []float64
	for _, u := range users {
		if u.projectCompleted.IsZero() {
			continue
		}
		data.CompletionStats.CompletedUsers++
		completionMinutes = append(completionMinutes, u.projectCompleted.Sub(u.firstEvent).Minutes())
	}
	data.CompletionStats.CompletionRate = percentage(data.CompletionStats.CompletedUsers, len(users))
	data.CompletionStats.AvgCompletionMinutes = round1(mean(completionMinutes))

	// Time to first project, over users who started one
	var firstProjectHours []float64
	for _, u := range users {
		if u.projectStarted.IsZero() {
			continue
		}
		firstProjectHours = append(firstProjectHours, u.projectStarted.Sub(u.firstEvent).Hours())
	}
	data.AvgTimeToFirstProject = round1(mean(firstProjectHours))

	// Per-step analytics in canonical order
	data.StepAnalytics = make([]model.StepAnalytics, 0, len(steps))
	for _, step := range steps {
		views := len(viewers[step.ID])
		completions := len(completers[step.ID])
		sa := model.StepAnalytics{
			StepID:          step.ID,
			StepTitle:       step.Title,
			ViewCount:       views,
			CompletionCount: completions,
			SkipCount:       len(skippers[step.ID]),
		}
		// Zero views means zero drop-off, never a division by zero.
		sa.DropOffRate = percentage(views-completions, views)
		data.StepAnalytics = append(data.StepAnalytics, sa)
	}

	// Funnel: entered at position n counts users who reached or passed
	// step n, so the entered series never increases along the funnel.
	data.Funnel.Stages = make([]model.FunnelStage, 0, len(steps))
	for i, step := range steps {
		entered := 0
		for _, u := range users {
			if u.maxStepPos >= i {
				entered++
			}
		}
		completed := len(completers[step.ID])
		data.Funnel.Stages = append(data.Funnel.Stages, model.FunnelStage{
			StepID:         step.ID,
			StepTitle:      step.Title,
			Entered:        entered,
			Completed:      completed,
			ConversionRate: percentage(completed, entered),
			DropOffCount:   entered - completed,
		})
	}

	data.Cohorts = foldCohorts(users)
	return data
}

func isStepEvent(kind model.EventKind) bool {
	return kind == model.EventStepViewed ||
		kind == model.EventStepCompleted ||
		kind == model.EventStepSkipped
}

// foldCohorts buckets users by the ISO week of their first event. Weeks
// with zero users simply do not appear.
func foldCohorts(users map[string]*userFold) model.CohortAnalysis {
	type cohortFold struct {
		userCount         int
		completedUsers    int
		completionMinutes []float64
	}
	cohorts := make(map[string]*cohortFold)

	for _, u := range users {
		year, week := u.firstEvent.ISOWeek()
		key := fmt.Sprintf("%d-W%02d", year, week)
		c, ok := cohorts[key]
		if !ok {
			c = &cohortFold{}
			cohorts[key] = c
		}
		c.userCount++
		if !u.projectCompleted.IsZero() {
			c.completedUsers++
			c.completionMinutes = append(c.completionMinutes, u.projectCompleted.Sub(u.firstEvent).Minutes())
		}
	}

	keys := make([]string, 0, len(cohorts))
	for key := range cohorts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	analysis := model.CohortAnalysis{Cohorts: make([]model.WeeklyCohort, 0, len(keys))}
	for _, key := range keys {
		c := cohorts[key]
		analysis.Cohorts = append(analysis.Cohorts, model.WeeklyCohort{
			Week:                 key,
			UserCount:            c.userCount,
			CompletionRate:       percentage(c.completedUsers, c.userCount),
			AvgCompletionMinutes: round1(mean(c.completionMinutes)),
		})
	}
	return analysis
}

// GetUserJourneyMetrics summarizes one user's recorded journey.
func (s *AnalyticsService) GetUserJourneyMetrics(ctx context.Context, userID string) (*model.UserJourneyMetrics, error) {
	events, err := s.Events.ReadEvents(ctx, model.EventFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	metrics := &model.UserJourneyMetrics{UserID: userID}
	completedSteps := make(map[string]bool)
	var started, completed time.Time

	for _, event := range events {
		if event.Timestamp.IsZero() {
			continue
		}
		switch event.Kind {
		case model.EventStepCompleted:
			completedSteps[event.StepID] = true
		case model.EventTutorialCompleted:
			metrics.TutorialsCompleted++
		case model.EventProjectStarted:
			metrics.FirstProjectStarted = true
			if started.IsZero() || event.Timestamp.Before(started) {
				started = event.Timestamp
			}
		case model.EventProjectCompleted:
			metrics.FirstProjectCompleted = true
			if completed.IsZero() || event.Timestamp.Before(completed) {
				completed = event.Timestamp
			}
		}
	}

	metrics.StepsCompleted = len(completedSteps)
	if !started.IsZero() && !completed.IsZero() && completed.After(started) {
		metrics.TotalDurationMinutes = round1(completed.Sub(started).Minutes())
	}
	return metrics, nil
}

// percentage returns part/total as a percent rounded to one decimal,
// clamped to 0 when the total is 0.
func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(part) / float64(total) * 100)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
