package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mfserna/taskcycle/internal/domain"
	"github.com/mfserna/taskcycle/internal/service"
)

func newEditCmd(app *App) *cobra.Command {
	var scope, date, title, description, assignee, status, due, notes string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a task, one occurrence, or a whole series",
		Long: `Edit a task record. For recurring series the --scope flag picks how far
the change reaches:

  this              only the named occurrence diverges
  this_and_future   the series splits at the occurrence date
  all               every occurrence and the series itself change`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			id, err := resolveTaskID(ctx, app, args[0])
			if err != nil {
				return err
			}

			req := service.EditRequest{
				TaskID: id,
				Scope:  domain.EditScope(scope),
				Notes:  notes,
			}
			if date != "" {
				d, err := parseDateFlag("occurrence", date)
				if err != nil {
					return err
				}
				req.OccurrenceDate = d
			}
			if title != "" {
				req.Changes.Title = &title
			}
			if description != "" {
				req.Changes.Description = &description
			}
			if assignee != "" {
				req.Changes.AssigneeID = &assignee
			}
			if status != "" {
				st := domain.TaskStatus(status)
				req.Changes.Status = &st
			}
			if due != "" {
				d, err := parseDateFlag("due", due)
				if err != nil {
					return err
				}
				req.Changes.DueDate = &d
			}
			if req.Changes.Empty() {
				return fmt.Errorf("nothing to change: pass at least one of --title, --desc, --assignee, --status, --due")
			}

			res, err := app.Series.Edit(ctx, req)
			if err != nil {
				return err
			}
			switch {
			case res.NewMasterID != "":
				fmt.Printf("Series split; new series %s\n", res.NewMasterID[:8])
			case res.ExceptionTaskID != "":
				fmt.Printf("Occurrence diverged as %s\n", res.ExceptionTaskID[:8])
			default:
				fmt.Printf("Updated %d task(s)\n", res.RowsUpdated)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", string(domain.ScopeThis), "Edit scope: this, this_and_future, or all")
	cmd.Flags().StringVar(&date, "date", "", "Occurrence date (YYYY-MM-DD), required when editing a master with scope this or this_and_future")
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "desc", "", "New description")
	cmd.Flags().StringVar(&assignee, "assignee", "", "New assignee")
	cmd.Flags().StringVar(&status, "status", "", "New status")
	cmd.Flags().StringVar(&due, "due", "", "New due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&notes, "notes", "", "Note recorded on the exception")

	return cmd
}
