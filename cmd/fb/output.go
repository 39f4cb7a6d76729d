package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/alfredjeanlab/flowboard/internal/model"
	"github.com/alfredjeanlab/flowboard/internal/search"
	"github.com/alfredjeanlab/flowboard/internal/server"
	"github.com/alfredjeanlab/flowboard/internal/ui"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// printActiveWork renders the timeline followed by the per-week issue lists.
func printActiveWork(w io.Writer, resp *server.ActiveWorkResponse, width int) {
	if resp.Query != "" && !resp.QueryValid {
		fmt.Fprintf(w, "%s query %q ignored\n", ui.RenderHeader("!"), resp.Query)
		printProblems(w, resp.Problems)
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, ui.RenderHeader("Timeline"))
	if len(resp.Timeline) == 0 {
		fmt.Fprintln(w, ui.RenderMuted("  no active work"))
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, g := range resp.Timeline {
		summary := g.EpicSummary
		if summary == g.EpicKey {
			summary = ""
		}
		fmt.Fprintf(tw, "  %s\t%s\t%d/%d\t%s\n",
			ui.RenderAccent(g.EpicKey),
			ui.RenderPct(g.CompletionPct),
			g.CompletedIssues, g.TotalIssues,
			ui.Truncate(summary, width/2),
		)
	}
	tw.Flush()

	printIssueList(w, "This week", resp.ThisWeekIssues, width)
	printIssueList(w, "Last week", resp.LastWeekIssues, width)
}

func printIssueList(w io.Writer, title string, issues []*model.Issue, width int) {
	fmt.Fprintf(w, "\n%s %s\n", ui.RenderHeader(title), ui.RenderMuted(fmt.Sprintf("(%d)", len(issues))))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, iss := range issues {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n",
			iss.Key,
			iss.Status,
			iss.Assignee,
			ui.Truncate(iss.Summary, width/2),
			ui.HealthBadges(iss.Health),
		)
	}
	tw.Flush()
}

// printCompleted renders one block per week, current week first.
func printCompleted(w io.Writer, resp *server.CompletedResponse, width int) {
	for i, wk := range resp.Weeks {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s %s\n", ui.RenderHeader(wk.DisplayLabel),
			ui.RenderMuted(fmt.Sprintf("%d issues, %g points", wk.TotalIssues, wk.TotalPoints)))
		if len(wk.EpicGroups) == 0 {
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			for _, iss := range wk.Issues {
				fmt.Fprintf(tw, "  %s\t%s\n", iss.Key, ui.Truncate(iss.Summary, width-20))
			}
			tw.Flush()
			continue
		}
		for _, g := range wk.EpicGroups {
			closed := ""
			if g.EpicClosed {
				closed = " " + ui.HealthBadges(&model.HealthIndicators{IsCompleted: true})
			}
			fmt.Fprintf(w, "  %s %s%s\n", ui.RenderAccent(g.EpicKey), ui.Truncate(g.EpicSummary, width/2), closed)
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			for _, iss := range g.Issues {
				fmt.Fprintf(tw, "    %s\t%s\n", iss.Key, ui.Truncate(iss.Summary, width-24))
			}
			tw.Flush()
		}
	}
}

func printProblems(w io.Writer, problems []search.Problem) {
	for _, p := range problems {
		fmt.Fprintf(w, "  - %s\n", p.String())
	}
}

func printViews(w io.Writer, views []server.View) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tQUERY\t")
	for _, v := range views {
		query := v.Query
		if query == "" {
			query = ui.RenderMuted("(everything)")
		}
		builtin := ""
		if v.Builtin {
			builtin = ui.RenderMuted("builtin")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", v.Name, query, builtin)
	}
	tw.Flush()
}

func printProfiles(w io.Writer, profiles []model.ProfileQuery) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROFILE\tQUERY\tISSUES")
	for _, p := range profiles {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", p.ProfileID, p.QueryID, p.IssueCount)
	}
	tw.Flush()
}

func printSettings(w io.Writer, s *model.AppSettings) {
	parentField := s.ParentField()
	if parentField == "" {
		parentField = ui.RenderMuted("(none, no epic grouping)")
	}
	fmt.Fprintf(w, "Parent field:       %s\n", parentField)
	fmt.Fprintf(w, "Flow end statuses:  %s\n", strings.Join(s.FlowEndStatuses(), ", "))
	fmt.Fprintf(w, "Flow WIP statuses:  %s\n", strings.Join(s.FlowWIPStatuses(), ", "))
	if len(s.DevelopmentProjects) > 0 {
		fmt.Fprintf(w, "Development:        %s\n", strings.Join(s.DevelopmentProjects, ", "))
	}
	if len(s.DevopsProjects) > 0 {
		fmt.Fprintf(w, "DevOps:             %s\n", strings.Join(s.DevopsProjects, ", "))
	}
}
