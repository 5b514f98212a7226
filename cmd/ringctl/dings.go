package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/ringwatch/internal/core"
	"github.com/yourusername/ringwatch/internal/database"
)

var (
	dingsLimit    int
	dingsCameraID int64
	dingsPrune    time.Duration
)

var dingsCmd = &cobra.Command{
	Use:   "dings",
	Short: "Read or prune the local ding log",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := core.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		if !config.Database.Enabled {
			return fmt.Errorf("ding log is disabled in %s", cfgFile)
		}

		log := newLogger()
		defer log.Sync()

		db, err := database.New(config.Database.Path, log.Named("database"))
		if err != nil {
			return err
		}
		defer db.Close()

		repo := database.NewDingRepository(db, log.Named("dings"))
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		if dingsPrune > 0 {
			n, err := repo.DeleteBefore(ctx, time.Now().Add(-dingsPrune))
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d dings older than %s.\n", n, dingsPrune)
			return nil
		}

		var dings []*database.Ding
		if dingsCameraID != 0 {
			dings, err = repo.ListByCamera(ctx, dingsCameraID, dingsLimit)
		} else {
			dings, err = repo.ListRecent(ctx, dingsLimit)
		}
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(dings)
		}

		if len(dings) == 0 {
			fmt.Println("No dings recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "TIME\tCAMERA\tKIND\tSTATE\tID")
		fmt.Fprintln(w, "----\t------\t----\t-----\t--")
		for _, d := range dings {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				d.CreatedAt.Local().Format(time.DateTime),
				d.CameraName,
				d.Kind,
				d.State,
				d.ID,
			)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(dingsCmd)
	dingsCmd.Flags().IntVar(&dingsLimit, "limit", 50, "Number of dings to show")
	dingsCmd.Flags().Int64Var(&dingsCameraID, "camera", 0, "Only dings of this camera id")
	dingsCmd.Flags().DurationVar(&dingsPrune, "prune", 0, "Delete dings older than this age instead of listing")
}
