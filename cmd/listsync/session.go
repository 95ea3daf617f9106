package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"philcali.me/listsync/internal/crosstab"
	"philcali.me/listsync/internal/kvstore"
)

var signinCmd = &cobra.Command{
	Use:   "signin USERID",
	Short: "Sign in, moving any guest lists into the account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := openApp(cmd.Context())
		defer app.Close()
		lists, err := app.SignIn(cmd.Context(), args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not pull remote lists: %v\n", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", app.Coordinator.Scope())
		printLists(cmd.OutOrStdout(), lists, false)
		return nil
	},
}

var signoutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Return to the guest lists",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := openApp(cmd.Context())
		defer app.Close()
		lists, err := app.SignOut(cmd.Context())
		if err != nil {
			return err
		}
		printLists(cmd.OutOrStdout(), lists, false)
		return nil
	},
}

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Merge the account's remote lists into the local store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := openApp(cmd.Context())
		defer app.Close()
		lists, err := app.Sync(cmd.Context())
		if err != nil {
			return err
		}
		printLists(cmd.OutOrStdout(), lists, false)
		return nil
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Resend changes the remote store has not acknowledged",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := openApp(cmd.Context())
		defer app.Close()
		count := app.Coordinator.RetryPending(cmd.Context())
		app.Coordinator.Wait()
		fmt.Fprintf(cmd.OutOrStdout(), "Retried %d pending changes\n", count)
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow changes made by other processes sharing the local store",
	Long: `Watch prints the lists whenever another process writes them, and
periodically retries changes the remote store has not acknowledged.

Press Ctrl+C to stop.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		retryEvery, _ := cmd.Flags().GetDuration("retry-interval")
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		app := openApp(ctx)
		defer app.Close()
		out := cmd.OutOrStdout()
		listener := crosstab.NewListener(app.KV, app.Coordinator, app.Logger)
		listener.OnApplied = func(change kvstore.Change) {
			fmt.Fprintf(out, "\nChanged by %s:\n", change.Origin)
			printLists(out, app.Coordinator.Lists(), false)
		}
		if app.sqlite != nil {
			go app.sqlite.Watch(ctx, app.Config.Local.PollInterval)
		}
		if retryEvery > 0 {
			go retryLoop(ctx, app, retryEvery)
		}

		fmt.Fprintf(out, "Watching lists for %s\n", app.Coordinator.Scope())
		printLists(out, app.Coordinator.Lists(), false)
		if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func retryLoop(ctx context.Context, app *App, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if count := app.Coordinator.RetryPending(ctx); count > 0 {
				app.Logger.Info("retrying pending changes", "count", count)
			}
		}
	}
}

func init() {
	watchCmd.Flags().Duration("retry-interval", 30*time.Second, "How often to resend pending changes, 0 to disable")
	rootCmd.AddCommand(signinCmd, signoutCmd, pullCmd, retryCmd, watchCmd)
}
