package model

import "time"

// OnboardingAnalyticsData is the full dashboard rollup. It is derived
// from the event set on every computation and is never the source of
// truth; recomputing it is always safe.
type OnboardingAnalyticsData struct {
	TotalUsers            int             `json:"total_users"`
	CompletionStats       CompletionStats `json:"completion_stats"`
	AvgTimeToFirstProject float64         `json:"avg_time_to_first_project_hours"`
	StepAnalytics         []StepAnalytics `json:"step_analytics"`
	Funnel                FunnelAnalysis  `json:"funnel"`
	Cohorts               CohortAnalysis  `json:"cohorts"`
	SkippedRecords        int             `json:"skipped_records"`
	GeneratedAt           time.Time       `json:"generated_at"`
}

type CompletionStats struct {
	CompletionRate       float64 `json:"completion_rate"`
	AvgCompletionMinutes float64 `json:"avg_completion_minutes"`
	CompletedUsers       int     `json:"completed_users"`
}

// StepAnalytics counts distinct users per step. A user who both skipped
// and later completed a step contributes to both tallies.
type StepAnalytics struct {
	StepID          string  `json:"step_id"`
	StepTitle       string  `json:"step_title"`
	ViewCount       int     `json:"view_count"`
	CompletionCount int     `json:"completion_count"`
	SkipCount       int     `json:"skip_count"`
	DropOffRate     float64 `json:"drop_off_rate"`
}

type FunnelAnalysis struct {
	Stages []FunnelStage `json:"stages"`
}

// FunnelStage measures conversion at one canonical step position.
// Entered counts users who reached or passed the position, so the
// entered series is non-increasing along the funnel.
type FunnelStage struct {
	StepID         string  `json:"step_id"`
	StepTitle      string  `json:"step_title"`
	Entered        int     `json:"entered"`
	Completed      int     `json:"completed"`
	ConversionRate float64 `json:"conversion_rate"`
	DropOffCount   int     `json:"drop_off_count"`
}

type CohortAnalysis struct {
	Cohorts []WeeklyCohort `json:"cohorts"`
}

// WeeklyCohort buckets users by the ISO week of their first recorded
// event. Weeks without users are omitted from the analysis.
type WeeklyCohort struct {
	Week                 string  `json:"week"` // e.g. "2026-W35"
	UserCount            int     `json:"user_count"`
	CompletionRate       float64 `json:"completion_rate"`
	AvgCompletionMinutes float64 `json:"avg_completion_minutes"`
}

// UserJourneyMetrics summarizes a single user's onboarding journey.
type UserJourneyMetrics struct {
	UserID                string  `json:"user_id"`
	StepsCompleted        int     `json:"steps_completed"`
	TutorialsCompleted    int     `json:"tutorials_completed"`
	FirstProjectStarted   bool    `json:"first_project_started"`
	FirstProjectCompleted bool    `json:"first_project_completed"`
	TotalDurationMinutes  float64 `json:"total_duration_minutes,omitempty"`
}

// InsightThresholds configure the insight rule engine. They come from
// configuration, not from individual calls.
type InsightThresholds struct {
	HighDropOffPct        float64
	ModerateDropOffPct    float64
	SlowFirstProjectHours float64
	StrongCompletionPct   float64
}
