package usecase

import (
	"fmt"
	"main/model"
	"main/utils"
	"sort"
)

type insightSeverity int

// Lower values are more severe; firing rules are emitted most severe
// first.
const (
	severityCritical insightSeverity = iota
	severityWarning
	severityPositive
)

// insightRule pairs a condition over the computed aggregates with the
// message it emits. Rules are evaluated independently; every firing
// rule is emitted.
type insightRule struct {
	severity insightSeverity
	applies  func(data *model.OnboardingAnalyticsData, t model.InsightThresholds) bool
	message  func(data *model.OnboardingAnalyticsData, t model.InsightThresholds) string
}

var insightRules = []insightRule{
	{
		severity: severityCritical,
		applies: func(data *model.OnboardingAnalyticsData, t model.InsightThresholds) bool {
			step, ok := worstDropOffStep(data)
			return ok && step.DropOffRate > t.HighDropOffPct
		},
		message: func(data *model.OnboardingAnalyticsData, t model.InsightThresholds) string {
			step, _ := worstDropOffStep(data)
			return fmt.Sprintf("High drop-off on step %q: %.1f%% of viewers do not complete it", step.StepTitle, step.DropOffRate)
		},
	},
	{
		severity: severityWarning,
		applies: func(data *model.OnboardingAnalyticsData, t model.InsightThresholds) bool {
			step, ok := worstDropOffStep(data)
			return ok && step.DropOffRate > t.ModerateDropOffPct && step.DropOffRate <= t.HighDropOffPct
		},
		message: func(data *model.OnboardingAnalyticsData, t model.InsightThresholds) string {
			step, _ := worstDropOffStep(data)
			return fmt.Sprintf("Moderate drop-off on step %q: %.1f%% of viewers do not complete it", step.StepTitle, step.DropOffRate)
		},
	},
	{
		severity: severityWarning,
		applies: func(data *model.OnboardingAnalyticsData, t model.InsightThresholds) bool {
			return data.AvgTimeToFirstProject > t.SlowFirstProjectHours
		},
		message: func(data *model.OnboardingAnalyticsData, t model.InsightThresholds) string {
			return fmt.Sprintf("Users take %.1f hours on average to start their first project (target under %.0f)", data.AvgTimeToFirstProject, t.SlowFirstProjectHours)
		},
	},
	{
		severity: severityPositive,
		applies: func(data *model.OnboardingAnalyticsData, t model.InsightThresholds) bool {
			n := len(data.Cohorts.Cohorts)
			if n < 2 {
				return false
			}
			return data.Cohorts.Cohorts[n-1].CompletionRate > data.Cohorts.Cohorts[n-2].CompletionRate
		},
		message: func(data *model.OnboardingAnalyticsData, t model.InsightThresholds) string {
			n := len(data.Cohorts.Cohorts)
			last := data.Cohorts.Cohorts[n-1]
			prev := data.Cohorts.Cohorts[n-2]
			return fmt.Sprintf("Completion rate improved week-over-week: %.1f%% (%s) up from %.1f%% (%s)", last.CompletionRate, last.Week, prev.CompletionRate, prev.Week)
		},
	},
	{
		severity: severityPositive,
		applies: func(data *model.OnboardingAnalyticsData, t model.InsightThresholds) bool {
			return data.TotalUsers > 0 && data.CompletionStats.CompletionRate >= t.StrongCompletionPct
		},
		message: func(data *model.OnboardingAnalyticsData, t model.InsightThresholds) string {
			return fmt.Sprintf("Strong overall completion rate: %.1f%% of users finish their first project", data.CompletionStats.CompletionRate)
		},
	},
}

// GenerateInsights evaluates every rule against the aggregates and
// returns the firing messages, most severe first. No rule firing yields
// an empty slice; the caller owns the "gathering insights" empty state.
func GenerateInsights(data *model.OnboardingAnalyticsData, thresholds model.InsightThresholds) []string {
	type firing struct {
		severity insightSeverity
		order    int
		message  string
	}
	var fired []firing
	for i, rule := range insightRules {
		if rule.applies(data, thresholds) {
			fired = append(fired, firing{rule.severity, i, rule.message(data, thresholds)})
		}
	}

	sort.SliceStable(fired, func(i, j int) bool {
		if fired[i].severity != fired[j].severity {
			return fired[i].severity < fired[j].severity
		}
		return fired[i].order < fired[j].order
	})

	insights := make([]string, 0, len(fired))
	for _, f := range fired {
		insights = append(insights, f.message)
	}
	return insights
}

// GenerateInsights runs the rule engine with the service's configured
// thresholds.
func (s *AnalyticsService) GenerateInsights(data *model.OnboardingAnalyticsData) []string {
	return GenerateInsights(data, s.Thresholds)
}

func worstDropOffStep(data *model.OnboardingAnalyticsData) (model.StepAnalytics, bool) {
	worst := model.StepAnalytics{}
	found := false
	for _, step := range data.StepAnalytics {
		if step.ViewCount == 0 {
			continue
		}
		if !found || step.DropOffRate > worst.DropOffRate {
			worst = step
			found = true
		}
	}
	return worst, found
}

// InsightThresholdsFromEnv reads the rule thresholds from configuration.
func InsightThresholdsFromEnv() model.InsightThresholds {
	return model.InsightThresholds{
		HighDropOffPct:        utils.GetEnvAsFloat("INSIGHT_HIGH_DROPOFF_PCT", 10),
		ModerateDropOffPct:    utils.GetEnvAsFloat("INSIGHT_MODERATE_DROPOFF_PCT", 5),
		SlowFirstProjectHours: utils.GetEnvAsFloat("INSIGHT_SLOW_FIRST_PROJECT_HOURS", 48),
		StrongCompletionPct:   utils.GetEnvAsFloat("INSIGHT_STRONG_COMPLETION_PCT", 60),
	}
}
