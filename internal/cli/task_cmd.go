package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mfserna/taskcycle/internal/cli/formatter"
	"github.com/mfserna/taskcycle/internal/domain"
	"github.com/mfserna/taskcycle/internal/recur"
	"github.com/mfserna/taskcycle/internal/repository"
)

func newTaskCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks and recurring series",
	}

	cmd.AddCommand(
		newTaskAddCmd(app),
		newTaskListCmd(app),
		newTaskShowCmd(app),
		newTaskDoneCmd(app),
		newTaskRemoveCmd(app),
	)

	return cmd
}

func newTaskAddCmd(app *App) *cobra.Command {
	var title, description, assignee, business, date, due, repeat string
	var longCycle bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a task, optionally as a recurring series",
		RunE: func(cmd *cobra.Command, args []string) error {
			startDate, err := parseDateFlag("start", date)
			if err != nil {
				return err
			}

			t := &domain.Task{
				Title:       title,
				Description: description,
				AssigneeID:  assignee,
				BusinessID:  business,
				StartDate:   startDate,
				LongCycle:   longCycle,
			}
			if due != "" {
				dueDate, err := parseDateFlag("due", due)
				if err != nil {
					return err
				}
				t.DueDate = &dueDate
			}
			if repeat != "" {
				rule, err := recur.DecodeRule(repeat)
				if err != nil {
					return fmt.Errorf("invalid repeat rule: %w", err)
				}
				t.Rule = &rule
			}

			if err := app.Tasks.Create(context.Background(), t); err != nil {
				return err
			}

			if t.Kind == domain.KindMaster {
				fmt.Printf("Created series %s [%s]\n", t.Title, t.DisplayID())
			} else {
				fmt.Printf("Created task %s [%s]\n", t.Title, t.DisplayID())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Task title")
	cmd.Flags().StringVar(&description, "desc", "", "Longer description")
	cmd.Flags().StringVar(&assignee, "assignee", "", "Assignee identifier")
	cmd.Flags().StringVar(&business, "business", "", "Business identifier")
	cmd.Flags().StringVar(&date, "date", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&repeat, "repeat", "", `Recurrence rule, e.g. "FREQ=WEEKLY;BYDAY=MO,FR"`)
	cmd.Flags().BoolVar(&longCycle, "long-cycle", false, "Mark the series as long-cycle for horizon extension")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagRequired("date")

	return cmd
}

func newTaskListCmd(app *App) *cobra.Command {
	var assignee, business, status, from, to string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List task records",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := repository.TaskQuery{AssigneeID: assignee, BusinessID: business}
			if status != "" {
				st := domain.TaskStatus(status)
				q.Status = &st
			}
			if from != "" {
				d, err := parseDateFlag("from", from)
				if err != nil {
					return err
				}
				q.From = &d
			}
			if to != "" {
				d, err := parseDateFlag("to", to)
				if err != nil {
					return err
				}
				q.To = &d
			}

			tasks, err := app.Tasks.List(context.Background(), q)
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				fmt.Println(formatter.Dim("No tasks found."))
				return nil
			}
			fmt.Print(formatter.TaskTable(tasks))
			return nil
		},
	}

	cmd.Flags().StringVar(&assignee, "assignee", "", "Filter by assignee")
	cmd.Flags().StringVar(&business, "business", "", "Filter by business")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (todo, in_progress, done, cancelled)")
	cmd.Flags().StringVar(&from, "from", "", "Earliest start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Latest start date (YYYY-MM-DD)")

	return cmd
}

func newTaskShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one task in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			id, err := resolveTaskID(ctx, app, args[0])
			if err != nil {
				return err
			}
			t, err := app.Tasks.GetByID(ctx, id)
			if err != nil {
				return err
			}
			ruleText := ""
			if t.Rule != nil {
				ruleText = recur.EncodeRule(*t.Rule)
			}
			fmt.Print(formatter.TaskDetail(t, ruleText))
			return nil
		},
	}
}

func newTaskDoneCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task as done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			id, err := resolveTaskID(ctx, app, args[0])
			if err != nil {
				return err
			}
			if err := app.Tasks.MarkDone(ctx, id); err != nil {
				return err
			}
			fmt.Println("Done.")
			return nil
		},
	}
}

func newTaskRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a task; deleting a master removes its whole series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			id, err := resolveTaskID(ctx, app, args[0])
			if err != nil {
				return err
			}
			if err := app.Tasks.Delete(ctx, id); err != nil {
				return err
			}
			fmt.Println("Removed.")
			return nil
		},
	}
}
