package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mfserna/taskcycle/internal/repository"
	"github.com/mfserna/taskcycle/internal/service"
)

// App holds references to all service interfaces used by CLI commands.
type App struct {
	Tasks    service.TaskService
	Series   service.SeriesService
	Query    service.QueryService
	Extender service.ExtenderService

	// RunDaemon blocks running the scheduled extender until interrupted.
	// Wired by main so the CLI package stays free of scheduler plumbing.
	RunDaemon func(ctx context.Context) error
}

// NewRootCmd creates the top-level "taskcycle" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "taskcycle",
		Short:         "Recurring task manager for small businesses",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newTaskCmd(app),
		newEditCmd(app),
		newCancelCmd(app),
		newOccurrencesCmd(app),
		newSeriesCmd(app),
		newExtendCmd(app),
	)

	return root
}

func parseDateFlag(name, value string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s date %q: expected YYYY-MM-DD", name, value)
	}
	return d, nil
}

// resolveTaskID accepts a full UUID or an unambiguous prefix.
func resolveTaskID(ctx context.Context, app *App, input string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("task ID is required")
	}

	if _, err := app.Tasks.GetByID(ctx, input); err == nil {
		return input, nil
	}

	tasks, err := app.Tasks.List(ctx, repository.TaskQuery{})
	if err != nil {
		return "", err
	}
	var matches []string
	for _, t := range tasks {
		if strings.HasPrefix(t.ID, input) {
			matches = append(matches, t.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("task not found: %q", input)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("task ID prefix %q is ambiguous (%d matches)", input, len(matches))
	}
}
