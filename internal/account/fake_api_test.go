package account

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yourusername/ringwatch/internal/client"
)

// fakeAPI serves canned responses and counts calls
type fakeAPI struct {
	mu           sync.Mutex
	locations    []client.Location
	inventory    *client.DeviceInventory
	dings        []client.ActiveDing
	history      []client.HistoryEvent
	locationsErr error
	devicesErr   error
	dingsErr     error

	// devicesHook, when set, replaces the canned inventory response
	devicesHook func(ctx context.Context, call int32) (*client.DeviceInventory, error)

	locationCalls atomic.Int32
	deviceCalls   atomic.Int32
	dingCalls     atomic.Int32
	historyCalls  atomic.Int32
}

func (f *fakeAPI) FetchLocations(ctx context.Context) ([]client.Location, error) {
	f.locationCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locations, f.locationsErr
}

func (f *fakeAPI) FetchDevices(ctx context.Context) (*client.DeviceInventory, error) {
	n := f.deviceCalls.Add(1)
	f.mu.Lock()
	hook, inventory, err := f.devicesHook, f.inventory, f.devicesErr
	f.mu.Unlock()
	if hook != nil {
		return hook(ctx, n)
	}
	return inventory, err
}

func (f *fakeAPI) FetchActiveDings(ctx context.Context) ([]client.ActiveDing, error) {
	f.dingCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dings, f.dingsErr
}

func (f *fakeAPI) FetchHistory(ctx context.Context, limit int, favoritesOnly bool) ([]client.HistoryEvent, error) {
	f.historyCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit < len(f.history) {
		return f.history[:limit], nil
	}
	return f.history, nil
}

func (f *fakeAPI) setInventory(inv *client.DeviceInventory, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inventory, f.devicesErr = inv, err
}

func (f *fakeAPI) setDings(dings []client.ActiveDing, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dings, f.dingsErr = dings, err
}

func cameraData(id int64, locationID, description string) client.CameraData {
	return client.CameraData{ID: id, LocationID: locationID, Description: description}
}

func ding(id string, doorbotID int64) client.ActiveDing {
	return client.ActiveDing{IDStr: id, DoorbotID: doorbotID, Kind: "motion"}
}

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
	settle  = 100 * time.Millisecond
)
