package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/claude/liftrest/internal/client"
	"github.com/claude/liftrest/internal/lifecycle"
	"github.com/claude/liftrest/internal/models"
	"github.com/claude/liftrest/internal/resttimer"
	"github.com/claude/liftrest/internal/workout"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	server  string
	apiKey  string
	asJSON  bool
	timeout time.Duration
}

func (o *options) client() *client.Client {
	return client.New(o.server, o.apiKey)
}

func (o *options) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), o.timeout)
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "liftrestctl",
		Short:         "Control a LiftRest workout tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	server := os.Getenv("LIFTREST_URL")
	if server == "" {
		server = "http://127.0.0.1:8080"
	}
	root.PersistentFlags().StringVar(&opts.server, "server", server, "LiftRest server URL")
	root.PersistentFlags().StringVar(&opts.apiKey, "api-key", os.Getenv("LIFTREST_AUTH_API_KEY"), "API key, when the server requires one")
	root.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "print raw JSON")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout")

	root.AddCommand(newStatusCmd(opts))
	root.AddCommand(newWorkoutCmd(opts))
	root.AddCommand(newStartCmd(opts))
	root.AddCommand(newAdjustCmd(opts))
	root.AddCommand(newSkipCmd(opts))
	root.AddCommand(newCompleteCmd(opts))
	root.AddCommand(newLifecycleCmd(opts))
	return root
}

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active workout and rest timer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := opts.context()
			defer cancel()
			c := opts.client()

			view, err := c.Workout(ctx)
			if err != nil {
				return err
			}
			timer, err := c.RestTimer(ctx)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), map[string]any{"workout": view, "rest_timer": timer})
			}

			out := cmd.OutOrStdout()
			if view == nil {
				_, _ = fmt.Fprintln(out, "no workout in progress")
			} else {
				done, total := setCounts(view.Session)
				_, _ = fmt.Fprintf(out, "workout %q elapsed=%s sets=%d/%d\n",
					view.Session.Name, formatClock(int(view.ElapsedSeconds)), done, total)
			}
			printTimer(out, timer)
			return nil
		},
	}
}

func newWorkoutCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{Use: "workout", Short: "Start or end the workout"}

	var name, unit string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start a new workout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := opts.context()
			defer cancel()
			view, err := opts.client().StartWorkout(ctx, workout.StartInput{Name: name, WeightUnit: models.WeightUnit(unit)})
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), view)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "started %q (%s)\n", view.Session.Name, view.Session.ID)
			return nil
		},
	}
	startCmd.Flags().StringVar(&name, "name", "", "workout name (defaults by time of day)")
	startCmd.Flags().StringVar(&unit, "unit", "kg", "weight unit: kg|lbs")

	endCmd := &cobra.Command{
		Use:   "end",
		Short: "End the workout in progress",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := opts.context()
			defer cancel()
			ended, err := opts.client().EndWorkout(ctx)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), ended)
			}
			done, total := setCounts(*ended)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "ended %q sets=%d/%d\n", ended.Name, done, total)
			return nil
		},
	}

	cmd.AddCommand(startCmd, endCmd)
	return cmd
}

func newStartCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "start <seconds>",
		Short: "Start a rest countdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seconds, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("seconds must be a number: %w", err)
			}
			return runTimer(cmd, opts, func(ctx context.Context, c *client.Client) (resttimer.State, error) {
				return c.StartRestTimer(ctx, seconds)
			})
		},
	}
}

func newAdjustCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "adjust <delta>",
		Short: "Add or remove seconds from the running rest (e.g. 15 or -15)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			delta, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("delta must be a number: %w", err)
			}
			return runTimer(cmd, opts, func(ctx context.Context, c *client.Client) (resttimer.State, error) {
				return c.AdjustRestTimer(ctx, delta)
			})
		},
	}
}

func newSkipCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "skip",
		Short: "Skip the current rest",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTimer(cmd, opts, func(ctx context.Context, c *client.Client) (resttimer.State, error) {
				return c.SkipRestTimer(ctx)
			})
		},
	}
}

func newCompleteCmd(opts *options) *cobra.Command {
	var undo bool
	cmd := &cobra.Command{
		Use:   "complete <exercise> <set>",
		Short: "Mark a set completed and start its rest",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			exercise, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("exercise must be a number: %w", err)
			}
			set, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("set must be a number: %w", err)
			}

			ctx, cancel := opts.context()
			defer cancel()
			c := opts.client()
			var res *models.SetCompletion
			if undo {
				res, err = c.UncompleteSet(ctx, exercise, set)
			} else {
				res, err = c.CompleteSet(ctx, exercise, set)
			}
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), res)
			}

			state := "completed"
			if !res.Entry.Completed {
				state = "not completed"
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "exercise %d set %d %s (%s x %s)\n", exercise, set, state, res.Entry.Weight, res.Entry.Reps)
			if res.RestSeconds > 0 {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "rest started: %s\n", formatClock(res.RestSeconds))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "mark the set not completed instead")
	return cmd
}

func newLifecycleCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:       "lifecycle <active|background>",
		Short:     "Report an app foreground/background transition",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(lifecycle.StateActive), string(lifecycle.StateBackground)},
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := lifecycle.ParseState(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := opts.context()
			defer cancel()
			if err := opts.client().PublishLifecycle(ctx, state); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "lifecycle %s\n", state)
			return nil
		},
	}
}

func runTimer(cmd *cobra.Command, opts *options, fn func(context.Context, *client.Client) (resttimer.State, error)) error {
	ctx, cancel := opts.context()
	defer cancel()
	st, err := fn(ctx, opts.client())
	if err != nil {
		return err
	}
	if opts.asJSON {
		return printJSON(cmd.OutOrStdout(), st)
	}
	printTimer(cmd.OutOrStdout(), st)
	return nil
}

func printTimer(w io.Writer, st resttimer.State) {
	switch st.Status {
	case resttimer.StatusRunning:
		_, _ = fmt.Fprintf(w, "rest %s remaining of %s\n", formatClock(st.RemainingSeconds), formatClock(st.DurationSeconds))
	default:
		_, _ = fmt.Fprintf(w, "rest %s\n", st.Status)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func setCounts(s models.WorkoutSession) (done, total int) {
	for _, ex := range s.Exercises {
		for _, set := range ex.Sets {
			total++
			if set.Completed {
				done++
			}
		}
	}
	return done, total
}

func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
