package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	filterFlag string
	yesFlag    bool
	jsonFlag   bool
	rootCmd    = &cobra.Command{
		Use:           "followupctl",
		Short:         "Inspect and act on tracked follow-up messages",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func main() {
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Print JSON instead of a table")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List active messages by priority",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracker(false, func(a *app) error {
				return runList(a.tracker, filterFlag, jsonFlag, cmd.OutOrStdout())
			})
		},
	}
	listCmd.Flags().StringVarP(&filterFlag, "filter", "f", "all", "all, high, medium, low or pending")
	rootCmd.AddCommand(listCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show total, pending and high-priority counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracker(false, func(a *app) error {
				return runStats(a.tracker, filterFlag, jsonFlag, cmd.OutOrStdout())
			})
		},
	}
	statsCmd.Flags().StringVarP(&filterFlag, "filter", "f", "all", "all, high, medium, low or pending")
	rootCmd.AddCommand(statsCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "act <message-id> <replied|forwarded|completed|snooze>",
		Short: "Record an action on a message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracker(false, func(a *app) error {
				return runAct(cmd.Context(), a.tracker, args[0], args[1], cmd.OutOrStdout())
			})
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Fetch the configured mailbox and re-score",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracker(true, func(a *app) error {
				return runRefresh(cmd.Context(), a.tracker, cmd.OutOrStdout())
			})
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "import <file.mbox>",
		Short: "Track every message of an mbox file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracker(false, func(a *app) error {
				return runImport(cmd.Context(), a.tracker, args[0], a.logger, cmd.OutOrStdout())
			})
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "score <raw.json>",
		Short: "Score raw message records without tracking them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracker(false, func(a *app) error {
				return runScore(a.tracker, args[0], jsonFlag, cmd.OutOrStdout())
			})
		},
	})

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every tracked message and learned weight",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yesFlag {
				return fmt.Errorf("clear is irreversible; pass --yes to confirm")
			}
			return withTracker(false, func(a *app) error {
				return runClear(cmd.Context(), a.tracker, cmd.OutOrStdout())
			})
		},
	}
	clearCmd.Flags().BoolVar(&yesFlag, "yes", false, "Confirm deleting all tracked state")
	rootCmd.AddCommand(clearCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
