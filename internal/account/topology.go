package account

import (
	"context"
	"fmt"

	"github.com/yourusername/ringwatch/internal/client"
	"github.com/yourusername/ringwatch/internal/device"
)

// topology is the raw snapshot the graph is built from
type topology struct {
	locations []client.Location
	inventory *client.DeviceInventory
}

// fetchTopology retrieves locations and the device inventory. Transport
// errors are not retried.
func fetchTopology(ctx context.Context, api API) (*topology, error) {
	locations, err := api.FetchLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTopology, err)
	}

	inventory, err := api.FetchDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTopology, err)
	}
	if inventory == nil {
		inventory = &client.DeviceInventory{}
	}

	return &topology{locations: locations, inventory: inventory}, nil
}

// BuildLocations assembles the location graph.
//
// Every raw camera becomes one Camera, doorbot-class if it came from the
// doorbot bucket. Hub presence is computed for every raw location before the
// allow-list is applied. A nil filter keeps all locations; a non-nil filter
// keeps only the listed ids. The second return value lists every constructed
// camera, including those of filtered-out locations.
func BuildLocations(locations []client.Location, inventory *client.DeviceInventory, filter []string) ([]*device.Location, []*device.Camera) {
	if inventory == nil {
		inventory = &client.DeviceInventory{}
	}

	doorbots := inventory.Doorbots()
	cameras := make([]*device.Camera, 0, len(doorbots)+len(inventory.StickupCams))
	for _, data := range doorbots {
		cameras = append(cameras, device.NewCamera(data, true))
	}
	for _, data := range inventory.StickupCams {
		cameras = append(cameras, device.NewCamera(data, false))
	}

	hubLocations := make(map[string]bool)
	for _, hub := range inventory.Hubs() {
		hubLocations[hub.LocationID] = true
	}

	var allowed map[string]bool
	if filter != nil {
		allowed = make(map[string]bool, len(filter))
		for _, id := range filter {
			allowed[id] = true
		}
	}

	result := make([]*device.Location, 0, len(locations))
	for _, raw := range locations {
		if allowed != nil && !allowed[raw.LocationID] {
			continue
		}

		var owned []*device.Camera
		for _, cam := range cameras {
			if cam.LocationID() == raw.LocationID {
				owned = append(owned, cam)
			}
		}
		result = append(result, device.NewLocation(raw, hubLocations[raw.LocationID], owned))
	}

	return result, cameras
}

// flattenCameras lists the cameras of the given locations in order
func flattenCameras(locations []*device.Location) []*device.Camera {
	var out []*device.Camera
	for _, loc := range locations {
		out = append(out, loc.Cameras()...)
	}
	return out
}
