package account

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/ringwatch/internal/client"
	"github.com/yourusername/ringwatch/internal/clock"
	"github.com/yourusername/ringwatch/internal/device"
	"github.com/yourusername/ringwatch/internal/metrics"
)

// Options selects what the account tracks and how often it polls
type Options struct {
	// LocationIDs restricts the graph to these locations when non-nil
	LocationIDs []string
	// CameraStatusPollingInterval enables the debounce status poll when positive
	CameraStatusPollingInterval time.Duration
	// CameraDingsPollingInterval enables the active ding poll when positive
	CameraDingsPollingInterval time.Duration
}

// Config holds the configuration for Account
type Config struct {
	API     API
	Options Options
	Clock   clock.Clock
	Logger  *zap.Logger
	Metrics *metrics.Poller

	// OnReady is called once with the retained locations after the graph is
	// built and before polling starts
	OnReady func([]*device.Location)
}

// Account owns the location graph of one vendor account. The graph is
// fetched once, on first use, and the retained cameras are then kept up to
// date by a Coordinator until Close.
type Account struct {
	api     API
	options Options
	clock   clock.Clock
	logger  *zap.Logger
	metrics *metrics.Poller
	onReady func([]*device.Location)

	graph *once[*graph]

	coordinator *Coordinator
	mutex       sync.Mutex

	// Context for lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
}

type graph struct {
	locations []*device.Location
	cameras   []*device.Camera
	byID      map[int64]*device.Camera
}

// New creates an account. No request is made until the first query.
func New(config Config) *Account {
	ctx, cancel := context.WithCancel(context.Background())

	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	a := &Account{
		api:     config.API,
		options: config.Options,
		clock:   config.Clock,
		logger:  config.Logger,
		metrics: config.Metrics,
		onReady: config.OnReady,
		ctx:     ctx,
		cancel:  cancel,
	}
	a.graph = newOnce(ctx, a.build)
	return a
}

// build fetches the topology, assembles the graph and starts polling
func (a *Account) build(ctx context.Context) (*graph, error) {
	a.logger.Info("Fetching account topology",
		zap.Strings("location_filter", a.options.LocationIDs))

	topo, err := fetchTopology(ctx, a.api)
	if err != nil {
		a.logger.Error("Failed to build location graph", zap.Error(err))
		return nil, err
	}

	locations, all := BuildLocations(topo.locations, topo.inventory, a.options.LocationIDs)
	retained := flattenCameras(locations)

	g := &graph{
		locations: locations,
		cameras:   retained,
		byID:      make(map[int64]*device.Camera, len(retained)),
	}
	for _, cam := range retained {
		g.byID[cam.ID()] = cam
	}

	a.logger.Info("Location graph built",
		zap.Int("locations", len(locations)),
		zap.Int("raw_locations", len(topo.locations)),
		zap.Int("cameras", len(retained)),
		zap.Int("raw_cameras", len(all)))

	if a.onReady != nil {
		a.onReady(locations)
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()
	if ctx.Err() != nil {
		return nil, ErrClosed
	}

	a.coordinator = NewCoordinator(CoordinatorConfig{
		Source:                a.api,
		Cameras:               retained,
		StatusPollingInterval: a.options.CameraStatusPollingInterval,
		DingPollingInterval:   a.options.CameraDingsPollingInterval,
		Clock:                 a.clock,
		Logger:                a.logger.Named("coordinator"),
		Metrics:               a.metrics,
	})
	a.coordinator.Start(ctx)

	return g, nil
}

// Locations returns the retained locations in vendor order. The first call
// triggers the graph build; later calls, including after a failure, return
// the same outcome.
func (a *Account) Locations(ctx context.Context) ([]*device.Location, error) {
	g, err := a.graph.Get(ctx)
	if err != nil {
		return nil, err
	}
	return append([]*device.Location(nil), g.locations...), nil
}

// Cameras returns every camera of the retained locations
func (a *Account) Cameras(ctx context.Context) ([]*device.Camera, error) {
	g, err := a.graph.Get(ctx)
	if err != nil {
		return nil, err
	}
	return append([]*device.Camera(nil), g.cameras...), nil
}

// Camera returns the retained camera with the given id
func (a *Account) Camera(ctx context.Context, id int64) (*device.Camera, error) {
	g, err := a.graph.Get(ctx)
	if err != nil {
		return nil, err
	}
	cam, ok := g.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrCameraNotFound, id)
	}
	return cam, nil
}

// TrackedCameras reports how many cameras are kept up to date. ok is false
// until the graph has been built successfully. It never blocks.
func (a *Account) TrackedCameras() (n int, ok bool) {
	if !a.graph.Resolved() {
		return 0, false
	}
	g, err := a.graph.Get(context.Background())
	if err != nil {
		return 0, false
	}
	return len(g.cameras), true
}

// History returns recorded events, newest first. It does not touch the graph.
func (a *Account) History(ctx context.Context, limit int, favoritesOnly bool) ([]client.HistoryEvent, error) {
	events, err := a.api.FetchHistory(ctx, limit, favoritesOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	return events, nil
}

// Close stops polling and waits for the pipelines to exit
func (a *Account) Close() {
	a.logger.Info("Closing account")
	a.cancel()

	a.mutex.Lock()
	coordinator := a.coordinator
	a.mutex.Unlock()
	if coordinator != nil {
		coordinator.Wait()
	}
}
