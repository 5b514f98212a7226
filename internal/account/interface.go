package account

import (
	"context"

	"github.com/yourusername/ringwatch/internal/client"
	"github.com/yourusername/ringwatch/internal/device"
)

// API is the part of the vendor client the account depends on
type API interface {
	Source

	// FetchLocations returns the raw location list of the account
	FetchLocations(ctx context.Context) ([]client.Location, error)

	// FetchHistory returns recorded events, newest first
	FetchHistory(ctx context.Context, limit int, favoritesOnly bool) ([]client.HistoryEvent, error)
}

// Source is what the update coordinator polls
type Source interface {
	// FetchDevices returns the categorized device inventory
	FetchDevices(ctx context.Context) (*client.DeviceInventory, error)

	// FetchActiveDings returns the currently active dings
	FetchActiveDings(ctx context.Context) ([]client.ActiveDing, error)
}

// Provider exposes the location graph to the rest of the application
type Provider interface {
	// Locations returns the retained locations in vendor order
	Locations(ctx context.Context) ([]*device.Location, error)

	// Cameras returns every camera of the retained locations
	Cameras(ctx context.Context) ([]*device.Camera, error)

	// Camera returns one camera by id
	Camera(ctx context.Context, id int64) (*device.Camera, error)

	// History passes through to the vendor event history
	History(ctx context.Context, limit int, favoritesOnly bool) ([]client.HistoryEvent, error)
}

var (
	_ API      = (*client.APIClient)(nil)
	_ Provider = (*Account)(nil)
)
