package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/ringwatch/internal/client"
)

func twoLocationInventory() ([]client.Location, *client.DeviceInventory) {
	locations := []client.Location{
		{LocationID: "L1", Name: "Home"},
		{LocationID: "L2", Name: "Cabin"},
	}
	inventory := &client.DeviceInventory{
		DoorbotsList:       []client.CameraData{cameraData(1, "L1", "Front Door")},
		AuthorizedDoorbots: []client.CameraData{cameraData(2, "L2", "Shared Door")},
		StickupCams: []client.CameraData{
			cameraData(3, "L2", "Shed"),
			cameraData(4, "L1", "Garage"),
		},
		BaseStations: []client.Device{{ID: 10, LocationID: "L1"}},
	}
	return locations, inventory
}

func TestBuildLocationsWithoutFilterKeepsAll(t *testing.T) {
	raw, inventory := twoLocationInventory()

	locations, all := BuildLocations(raw, inventory, nil)

	require.Len(t, locations, 2)
	assert.Equal(t, "L1", locations[0].ID())
	assert.Equal(t, "L2", locations[1].ID())
	assert.Len(t, all, 4)
}

func TestBuildLocationsFilterKeepsOnlyListed(t *testing.T) {
	raw, inventory := twoLocationInventory()

	locations, all := BuildLocations(raw, inventory, []string{"L2"})

	require.Len(t, locations, 1)
	assert.Equal(t, "L2", locations[0].ID())

	var ids []int64
	for _, cam := range locations[0].Cameras() {
		assert.Equal(t, "L2", cam.LocationID())
		ids = append(ids, cam.ID())
	}
	assert.ElementsMatch(t, []int64{2, 3}, ids)

	// filtered-out cameras are still constructed
	assert.Len(t, all, 4)
}

func TestBuildLocationsEmptyFilterKeepsNone(t *testing.T) {
	raw, inventory := twoLocationInventory()

	locations, _ := BuildLocations(raw, inventory, []string{})

	assert.Empty(t, locations)
}

func TestBuildLocationsUnknownFilterID(t *testing.T) {
	raw, inventory := twoLocationInventory()

	locations, _ := BuildLocations(raw, inventory, []string{"L9", "L1"})

	require.Len(t, locations, 1)
	assert.Equal(t, "L1", locations[0].ID())
}

func TestHasHubDeviceIndependentOfFilter(t *testing.T) {
	raw, inventory := twoLocationInventory()
	inventory.BeamsBridges = []client.Device{{ID: 11, LocationID: "L2"}}

	all, _ := BuildLocations(raw, inventory, nil)
	require.Len(t, all, 2)
	assert.True(t, all[0].HasHubDevice())
	assert.True(t, all[1].HasHubDevice())

	inventory.BaseStations = nil
	filtered, _ := BuildLocations(raw, inventory, []string{"L1"})
	require.Len(t, filtered, 1)
	assert.False(t, filtered[0].HasHubDevice())

	filtered, _ = BuildLocations(raw, inventory, []string{"L2"})
	require.Len(t, filtered, 1)
	assert.True(t, filtered[0].HasHubDevice())
}

func TestBuildLocationsCameraClass(t *testing.T) {
	raw, inventory := twoLocationInventory()

	_, all := BuildLocations(raw, inventory, nil)

	classes := make(map[int64]bool)
	for _, cam := range all {
		classes[cam.ID()] = cam.IsDoorbot()
	}
	assert.Equal(t, map[int64]bool{1: true, 2: true, 3: false, 4: false}, classes)
}

func TestBuildLocationsEmptyInventory(t *testing.T) {
	raw, _ := twoLocationInventory()

	locations, all := BuildLocations(raw, nil, nil)

	require.Len(t, locations, 2)
	assert.Empty(t, locations[0].Cameras())
	assert.False(t, locations[0].HasHubDevice())
	assert.Empty(t, all)
}

func TestBuildLocationsCameraWithoutLocation(t *testing.T) {
	raw, inventory := twoLocationInventory()
	inventory.StickupCams = append(inventory.StickupCams, cameraData(5, "L7", "Orphan"))

	locations, all := BuildLocations(raw, inventory, nil)

	assert.Len(t, all, 5)
	total := 0
	for _, loc := range locations {
		total += len(loc.Cameras())
	}
	assert.Equal(t, 4, total)
}
