package templates

import (
	"github.com/a-h/templ"

	"github.com/emiliopalmerini/trialscope/internal/domain"
)

type DashboardPage struct {
	Stats       domain.DashboardStats
	Trends      domain.Trends
	Message     string
	CostChart   templ.Component
	DailyChart  templ.Component
	Experiments []ExperimentRow
	Days        []DayRow
	ActiveDay   string
	Anomalies   int
}

type ExperimentRow struct {
	domain.ExperimentSummary
	Highlighted bool
}

type DayRow struct {
	domain.DailyCost
	Highlighted bool
}

type ExperimentPage struct {
	Detail        domain.ExperimentDetail
	Stats         domain.DashboardStats
	Message       string
	AccuracyChart templ.Component
	Trials        []TrialRow
}

type TrialRow struct {
	domain.TrialSummary
	Highlighted bool
}

type TrialPage struct {
	Detail domain.TrialDetail
	Runs   []domain.RunView
}

type ErrorPage struct {
	Status  int
	Title   string
	Message string
}
