package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	historyLimit     int
	historyFavorites bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent doorbot events",
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyLimit <= 0 {
			return fmt.Errorf("--limit must be positive")
		}

		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, cancel := s.context(cmd)
		defer cancel()

		events, err := s.account.History(ctx, historyLimit, historyFavorites)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(events)
		}

		if len(events) == 0 {
			fmt.Println("No events.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "TIME\tCAMERA\tKIND\tANSWERED\tFAVORITE")
		fmt.Fprintln(w, "----\t------\t----\t--------\t--------")
		for _, e := range events {
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%t\n",
				e.CreatedAt.Local().Format(time.DateTime),
				e.Doorbot.Description,
				e.Kind,
				e.Answered,
				e.Favorite,
			)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of events to fetch")
	historyCmd.Flags().BoolVar(&historyFavorites, "favorites", false, "Only favorited events")
}
