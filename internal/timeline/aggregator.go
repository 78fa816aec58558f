// Package timeline derives a project's timeline summary from raw tracker
// issues and formats tracker timestamps for display.
package timeline

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/projectpulse/pulsebot/internal/metrics"
	"github.com/projectpulse/pulsebot/internal/tracker"
	"github.com/projectpulse/pulsebot/pkg/models"
)

// Aggregator computes ProjectSummary values. Summaries are recomputed on
// every call; nothing is cached, so staleness is impossible.
type Aggregator struct {
	tracker tracker.Client
	metrics *metrics.Metrics
}

// NewAggregator creates an aggregator over the given tracker client.
func NewAggregator(client tracker.Client, m *metrics.Metrics) *Aggregator {
	return &Aggregator{tracker: client, metrics: m}
}

// Summarize resolves the project and derives its timeline summary from up to
// three bounded issue searches. Project resolution failure aborts with
// tracker.ErrNotFound; a failed search is logged and degrades its derived
// fields to "N/A" / empty instead of failing the whole view.
//
// The control-points search deliberately repeats the Task query used for the
// date fields. The two summary fields have historically been fed from the
// same data source; keep them identical until the product decides otherwise.
func (a *Aggregator) Summarize(ctx context.Context, projectKey string) (*models.ProjectSummary, error) {
	project, err := a.tracker.GetProject(ctx, projectKey)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project %q: %w", projectKey, err)
	}

	// The three searches are independent reads; dispatch them concurrently
	// and join before rendering.
	var (
		wg                             sync.WaitGroup
		dateTasks, epics, controlTasks []models.Issue
		dateErr, epicErr, controlErr   error
	)

	search := func(issueType models.IssueType, dst *[]models.Issue, dstErr *error) {
		defer wg.Done()
		issues, err := a.tracker.SearchIssues(ctx, tracker.Search{
			ProjectKey: projectKey,
			IssueType:  issueType,
			MaxResults: tracker.DefaultMaxResults,
		})
		*dst, *dstErr = issues, err
	}

	wg.Add(3)
	go search(models.IssueTypeTask, &dateTasks, &dateErr)
	go search(models.IssueTypeEpic, &epics, &epicErr)
	go search(models.IssueTypeTask, &controlTasks, &controlErr)
	wg.Wait()

	for _, q := range []struct {
		name string
		err  error
	}{
		{"task_dates", dateErr},
		{"epic_milestones", epicErr},
		{"task_control_points", controlErr},
	} {
		if q.err != nil {
			log.Printf("timeline: %s query for %s failed, degrading to N/A: %v", q.name, projectKey, q.err)
			a.metrics.TrackerQueryFailures.WithLabelValues(q.name).Inc()
		}
	}

	summary := &models.ProjectSummary{
		Key:           project.Key,
		Name:          project.Name,
		ID:            project.ID,
		PlannedStart:  FormatDate(earliest(dateTasks, func(i models.Issue) string { return i.Created })),
		ActualStart:   FormatDate(earliest(inProgress(dateTasks), func(i models.Issue) string { return i.Created })),
		PlannedEnd:    FormatDate(latest(dateTasks, func(i models.Issue) string { return i.DueDate })),
		ActualEnd:     FormatDate(latest(dateTasks, func(i models.Issue) string { return i.ResolutionDate })),
		Milestones:    renderDeadlines(epics),
		ControlPoints: renderDeadlines(controlTasks),
	}
	return summary, nil
}

func inProgress(issues []models.Issue) []models.Issue {
	var out []models.Issue
	for _, is := range issues {
		if is.StatusName == models.StatusInProgress {
			out = append(out, is)
		}
	}
	return out
}

// earliest returns the lexicographic minimum of the non-empty field values,
// or "N/A" when no issue carries the field. ISO timestamps order
// lexicographically, so no parsing is needed here.
func earliest(issues []models.Issue, field func(models.Issue) string) string {
	best := ""
	for _, is := range issues {
		v := field(is)
		if v == "" {
			continue
		}
		if best == "" || v < best {
			best = v
		}
	}
	if best == "" {
		return models.NotAvailable
	}
	return best
}

func latest(issues []models.Issue, field func(models.Issue) string) string {
	best := ""
	for _, is := range issues {
		v := field(is)
		if v == "" {
			continue
		}
		if v > best {
			best = v
		}
	}
	if best == "" {
		return models.NotAvailable
	}
	return best
}

// renderDeadlines renders each issue as "summary: duedate", preserving the
// tracker's result order.
func renderDeadlines(issues []models.Issue) []string {
	out := make([]string, 0, len(issues))
	for _, is := range issues {
		out = append(out, fmt.Sprintf("%s: %s", is.Summary, is.DueDate))
	}
	return out
}
