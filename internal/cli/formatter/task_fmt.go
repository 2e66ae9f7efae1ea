package formatter

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mfserna/taskcycle/internal/domain"
	"github.com/mfserna/taskcycle/internal/recur"
)

// TaskTable renders tasks as a listing with id, badges, title, and dates.
func TaskTable(tasks []*domain.Task) string {
	headers := []string{"ID", "", "TITLE", "STATUS", "DATE", "DUE"}
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		due := ""
		if t.DueDate != nil {
			due = RelativeDate(*t.DueDate)
		}
		rows = append(rows, []string{
			Dim(t.DisplayID()),
			KindBadge(t),
			t.Title,
			StatusBadge(t.Status),
			t.StartDate.Format("2006-01-02"),
			due,
		})
	}
	return RenderTable(headers, rows)
}

// OccurrenceTable renders a reconciled occurrence view. Virtual rows carry
// no record of their own and show the master's title dimmed.
func OccurrenceTable(occs []recur.Occurrence) string {
	headers := []string{"DATE", "", "TITLE", "STATUS", "SOURCE"}
	rows := make([][]string, 0, len(occs))
	for _, occ := range occs {
		title := ""
		status := ""
		source := Dim("virtual")
		if occ.Task != nil {
			title = occ.Task.Title
			status = StatusBadge(occ.Task.Status)
		}
		switch {
		case occ.Generated:
			title = Dim(title)
			status = Dim("● todo")
		case occ.Modified:
			source = StyleYellow.Render("diverged")
		default:
			source = "record"
		}
		rows = append(rows, []string{
			occ.Start.Format("2006-01-02"),
			KindBadge(occ.Task),
			title,
			status,
			source,
		})
	}
	return RenderTable(headers, rows)
}

// TaskDetail renders a full single-task view including the recurrence
// rule when the task is a series master.
func TaskDetail(t *domain.Task, ruleText string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", Bold(t.Title), Dim(t.DisplayID()))
	fmt.Fprintf(&b, "%s %s\n", Dim("status:"), StatusBadge(t.Status))
	fmt.Fprintf(&b, "%s %s (%s)\n", Dim("date:"), t.StartDate.Format("2006-01-02"), RelativeDate(t.StartDate))
	if t.DueDate != nil {
		fmt.Fprintf(&b, "%s %s (%s)\n", Dim("due:"), t.DueDate.Format("2006-01-02"), RelativeDate(*t.DueDate))
	}
	if t.AssigneeID != "" {
		fmt.Fprintf(&b, "%s %s\n", Dim("assignee:"), t.AssigneeID)
	}
	if t.BusinessID != "" {
		fmt.Fprintf(&b, "%s %s\n", Dim("business:"), t.BusinessID)
	}
	if t.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", t.Description)
	}
	if ruleText != "" {
		fmt.Fprintf(&b, "%s %s\n", Dim("repeats:"), StylePurple.Render(ruleText))
		if t.RecurrenceEndDate != nil {
			fmt.Fprintf(&b, "%s %s\n", Dim("materialized through:"), t.RecurrenceEndDate.Format("2006-01-02"))
		}
	}
	if t.ParentTaskID != nil {
		fmt.Fprintf(&b, "%s %s\n", Dim("series:"), (*t.ParentTaskID)[:8])
	}
	return b.String()
}

// RelativeDate returns a human-friendly relative date string.
func RelativeDate(t time.Time) string {
	return RelativeDateFrom(t, time.Now())
}

func RelativeDateFrom(t time.Time, now time.Time) string {
	diff := t.Sub(now)
	days := int(math.Round(diff.Hours() / 24))

	switch {
	case days == 0:
		return "Today"
	case days == 1:
		return "Tomorrow"
	case days == -1:
		return "Yesterday"
	case days > 0 && days < 14:
		return fmt.Sprintf("In %dd", days)
	case days > 0 && days < 60:
		return fmt.Sprintf("In %dw", days/7)
	case days > 0:
		return fmt.Sprintf("In %dmo", days/30)
	case days < 0 && days > -14:
		return fmt.Sprintf("%dd ago", -days)
	case days < 0 && days > -60:
		return fmt.Sprintf("%dw ago", -days/7)
	default:
		return fmt.Sprintf("%dmo ago", -days/30)
	}
}
