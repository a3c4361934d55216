package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/paperloop/paperloop-backend/internal/collection/domain"
	"github.com/paperloop/paperloop-backend/internal/collection/service"
	"gopkg.in/yaml.v3"
)

const timeLayout = "2006-01-02 15:04"

// sessionResult is the structured output of commands that may warn
type sessionResult struct {
	Session  *domain.CollectionSession `json:"session"`
	Warnings []domain.Warning          `json:"warnings"`
}

// render writes v as JSON or YAML, or calls renderTable in table mode
func (a *app) render(v interface{}, renderTable func()) error {
	switch a.output {
	case outputJSON:
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		return writeYAML(a.out, v)
	}
	renderTable()
	return nil
}

// writeYAML goes through JSON first so keys follow the json tags
func writeYAML(w io.Writer, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}

	var doc interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func (a *app) newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(a.out)
	tw.SetStyle(table.StyleLight)
	return tw
}

func (a *app) printSessions(sessions []*domain.CollectionSession) error {
	return a.render(sessions, func() {
		tw := a.newTable()
		tw.AppendHeader(table.Row{"Number", "ID", "Status", "Supplier", "Coordinator", "Planned Start", "Estimated", "Actual", "Efficiency", "Open Problems"})
		for _, s := range sessions {
			tw.AppendRow(table.Row{
				s.SessionNumber,
				s.ID,
				s.Status,
				s.SupplierName,
				s.CoordinatorName,
				s.EstimatedStartDate.Format(timeLayout),
				s.CollectionData.EstimatedAmount,
				formatAmount(s.CollectionData.ActualAmount),
				formatEfficiency(s.Performance),
				s.OpenProblemCount(),
			})
		}
		tw.AppendFooter(table.Row{"", "", "", "", "", "", "", "", "Total", len(sessions)})
		tw.Render()
	})
}

func (a *app) printSession(s *domain.CollectionSession) error {
	return a.render(s, func() { a.sessionTables(s) })
}

func (a *app) printResult(s *domain.CollectionSession, warnings []domain.Warning) error {
	if warnings == nil {
		warnings = []domain.Warning{}
	}
	return a.render(sessionResult{Session: s, Warnings: warnings}, func() {
		a.sessionTables(s)
		for _, w := range warnings {
			fmt.Fprintf(a.errOut, "warning: %s (%s)\n", w.Message, w.Code)
		}
	})
}

func (a *app) sessionTables(s *domain.CollectionSession) {
	tw := a.newTable()
	tw.SetTitle(s.SessionNumber)
	tw.AppendRows([]table.Row{
		{"ID", s.ID},
		{"Status", s.Status},
		{"Supplier", fmt.Sprintf("%s (%s)", s.SupplierName, s.SupplierID)},
		{"Site", s.SiteLocation},
		{"Coordinator", fmt.Sprintf("%s (%s)", s.CoordinatorName, s.CoordinatorID)},
		{"Marketer", s.MarketerName},
		{"Planned", s.EstimatedStartDate.Format(timeLayout) + " - " + s.EstimatedEndDate.Format(timeLayout)},
		{"Actual", formatTime(s.ActualStartDate) + " - " + formatTime(s.ActualEndDate)},
		{"Hours", formatHours(s.TotalTimeSpent)},
		{"Estimated Amount", s.CollectionData.EstimatedAmount},
		{"Actual Amount", formatAmount(s.CollectionData.ActualAmount)},
		{"Paper Types", formatPaperTypes(s.CollectionData.PaperTypes)},
		{"Efficiency", formatEfficiency(s.Performance)},
		{"Version", s.Version},
	})
	if s.Performance != nil {
		tw.AppendRow(table.Row{"Quality / Punctuality", fmt.Sprintf("%d / %d", s.Performance.Quality, s.Performance.Punctuality)})
	}
	tw.Render()

	if len(s.Problems) > 0 {
		pt := a.newTable()
		pt.SetTitle("Problems")
		pt.AppendHeader(table.Row{"ID", "Priority", "Status", "Reported", "Description", "Resolution"})
		for _, p := range s.Problems {
			resolution := ""
			if p.Resolution != nil {
				resolution = *p.Resolution
			}
			pt.AppendRow(table.Row{p.ID, p.Priority, p.Status, p.ReportedDate.Format(timeLayout), p.Description, resolution})
		}
		pt.Render()
	}

	if len(s.Comments) > 0 {
		ct := a.newTable()
		ct.SetTitle("Comments")
		ct.AppendHeader(table.Row{"Time", "Author", "Type", "Comment"})
		for _, c := range s.Comments {
			ct.AppendRow(table.Row{c.Timestamp.Format(timeLayout), c.AuthorName, c.Type, c.Comment})
		}
		ct.Render()
	}
}

func (a *app) printStats(stats *service.SessionStats) error {
	return a.render(stats, func() {
		tw := a.newTable()
		tw.SetTitle("Collection Sessions")
		tw.AppendRow(table.Row{"Total", stats.Total})
		for _, status := range domain.AllStatuses {
			tw.AppendRow(table.Row{"  " + string(status), stats.ByStatus[status]})
		}
		tw.AppendSeparator()
		tw.AppendRow(table.Row{"Average Efficiency", fmt.Sprintf("%.2f%%", stats.AverageEfficiency)})
		tw.AppendRow(table.Row{"Total Collected", stats.TotalCollected})
		tw.AppendRow(table.Row{"Open Problems", stats.OpenProblems})
		tw.Render()
	})
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(timeLayout)
}

func formatAmount(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatHours(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v) + "h"
}

func formatEfficiency(p *domain.Performance) string {
	if p == nil {
		return "-"
	}
	return strconv.Itoa(p.Efficiency) + "%"
}

func formatPaperTypes(p domain.PaperTypes) string {
	return fmt.Sprintf("carton %g, mixed %g, sw %g, sc %g, np %g (total %g)",
		p.Carton, p.Mixed, p.SortedWhite, p.SortedColor, p.Newspaper, p.Total())
}
