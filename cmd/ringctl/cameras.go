package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yourusername/ringwatch/internal/client"
	"github.com/yourusername/ringwatch/internal/device"
)

type cameraRow struct {
	ID         int64             `json:"id"`
	Name       string            `json:"name"`
	Doorbot    bool              `json:"doorbot"`
	LocationID string            `json:"location_id"`
	Data       client.CameraData `json:"data"`
}

func newCameraRow(cam *device.Camera) cameraRow {
	data := cam.Data()
	return cameraRow{
		ID:         cam.ID(),
		Name:       cam.Name(),
		Doorbot:    cam.IsDoorbot(),
		LocationID: data.LocationID,
		Data:       data,
	}
}

var camerasCmd = &cobra.Command{
	Use:   "cameras [id]",
	Short: "List cameras, or show one camera by id",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, cancel := s.context(cmd)
		defer cancel()

		var cameras []*device.Camera
		if len(args) == 1 {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid camera id %q", args[0])
			}
			cam, err := s.account.Camera(ctx, id)
			if err != nil {
				return err
			}
			cameras = []*device.Camera{cam}
		} else {
			cameras, err = s.account.Cameras(ctx)
			if err != nil {
				return fmt.Errorf("error fetching cameras: %w", err)
			}
		}

		rows := make([]cameraRow, 0, len(cameras))
		for _, cam := range cameras {
			rows = append(rows, newCameraRow(cam))
		}

		if jsonOutput {
			if len(args) == 1 {
				return printJSON(rows[0])
			}
			return printJSON(rows)
		}

		if len(rows) == 0 {
			fmt.Println("No cameras.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tKIND\tDOORBOT\tLOCATION\tBATTERY")
		fmt.Fprintln(w, "--\t----\t----\t-------\t--------\t-------")
		for _, r := range rows {
			battery := r.Data.BatteryLife.String()
			if battery == "" {
				battery = "-"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%s\t%s\n", r.ID, r.Name, r.Data.Kind, r.Doorbot, r.LocationID, battery)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(camerasCmd)
}
