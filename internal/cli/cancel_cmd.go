package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newCancelCmd(app *App) *cobra.Command {
	var date, notes string

	cmd := &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel one occurrence of a series, or a standalone task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			id, err := resolveTaskID(ctx, app, args[0])
			if err != nil {
				return err
			}
			var occDate time.Time
			if date != "" {
				occDate, err = parseDateFlag("occurrence", date)
				if err != nil {
					return err
				}
			}
			if err := app.Series.CancelOccurrence(ctx, id, occDate, notes); err != nil {
				return err
			}
			fmt.Println("Cancelled.")
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Occurrence date (YYYY-MM-DD), required when cancelling against a master")
	cmd.Flags().StringVar(&notes, "notes", "", "Note recorded on the exception")

	return cmd
}
