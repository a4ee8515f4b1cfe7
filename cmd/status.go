package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var statusDeadLetters int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show reconciliation cache statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openCache(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		stats, err := st.ReadStats(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Resolved addresses: %d\n", stats.Resolved)
		fmt.Printf("  confirmed on OSM: %d\n", stats.OnOSM)
		fmt.Printf("  typo suggestions: %d\n", stats.Suggested)
		fmt.Printf("  missing from OSM: %d\n", stats.Unmatched)
		fmt.Printf("Dead letters:       %d\n", stats.DeadLetters)
		fmt.Printf("Runs recorded:      %d\n", stats.Runs)

		if statusDeadLetters > 0 && stats.DeadLetters > 0 {
			letters, err := st.ListDeadLetters(ctx, statusDeadLetters)
			if err != nil {
				return err
			}
			fmt.Println("\nRecent dead letters:")
			for _, dl := range letters {
				fmt.Printf("  [%s] %s: %s\n", dl.ErrorType, dl.Address, dl.Error)
			}
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusDeadLetters, "dead-letters", 0, "also list up to N recent dead letters")
	rootCmd.AddCommand(statusCmd)
}
