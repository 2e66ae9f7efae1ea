package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newExtendCmd(app *App) *cobra.Command {
	var daemon bool

	cmd := &cobra.Command{
		Use:   "extend",
		Short: "Extend recurring series whose materialized horizon is running out",
		RunE: func(cmd *cobra.Command, args []string) error {
			if daemon {
				if app.RunDaemon == nil {
					return fmt.Errorf("daemon mode is not available in this build")
				}
				return app.RunDaemon(cmd.Context())
			}

			report, err := app.Extender.ExtendDueMasters(context.Background(), time.Now().UTC())
			if err != nil {
				return err
			}
			fmt.Printf("Extended %d series, created %d instances\n",
				report.MastersExtended, report.InstancesCreated)
			for _, f := range report.Failures {
				fmt.Fprintf(cmd.ErrOrStderr(), "failed: %v\n", f.Err)
			}
			if len(report.Failures) > 0 {
				return fmt.Errorf("%d series could not be extended", len(report.Failures))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&daemon, "daemon", false, "Keep running and sweep on the configured schedule")

	return cmd
}
