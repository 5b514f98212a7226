package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type locationRow struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	HasHubDevice bool    `json:"has_hub_device"`
	CameraIDs    []int64 `json:"camera_ids"`
}

var locationsCmd = &cobra.Command{
	Use:   "locations",
	Short: "List locations retained by the configured filter",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, cancel := s.context(cmd)
		defer cancel()

		locations, err := s.account.Locations(ctx)
		if err != nil {
			return fmt.Errorf("error fetching locations: %w", err)
		}

		rows := make([]locationRow, 0, len(locations))
		for _, loc := range locations {
			row := locationRow{ID: loc.ID(), Name: loc.Name(), HasHubDevice: loc.HasHubDevice(), CameraIDs: []int64{}}
			for _, cam := range loc.Cameras() {
				row.CameraIDs = append(row.CameraIDs, cam.ID())
			}
			rows = append(rows, row)
		}

		if jsonOutput {
			return printJSON(rows)
		}

		if len(rows) == 0 {
			fmt.Println("No locations.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tHUB\tCAMERAS")
		fmt.Fprintln(w, "--\t----\t---\t-------")
		for _, r := range rows {
			fmt.Fprintf(w, "%s\t%s\t%t\t%d\n", r.ID, r.Name, r.HasHubDevice, len(r.CameraIDs))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(locationsCmd)
}
