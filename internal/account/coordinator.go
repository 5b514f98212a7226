package account

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/ringwatch/internal/client"
	"github.com/yourusername/ringwatch/internal/clock"
	"github.com/yourusername/ringwatch/internal/device"
	"github.com/yourusername/ringwatch/internal/metrics"
)

// DefaultThrottleWindow is the leading-edge window applied to status refresh
// triggers
const DefaultThrottleWindow = 500 * time.Millisecond

// trigger sources, used as metric labels
const (
	sourceRequest = "request"
	sourceMerged  = "merged"
)

type pipelineState int

const (
	stateIdle pipelineState = iota
	stateWaiting
	stateInFlight
)

func (s pipelineState) String() string {
	switch s {
	case stateWaiting:
		return "waiting"
	case stateInFlight:
		return "in_flight"
	default:
		return "idle"
	}
}

// CoordinatorConfig configures a Coordinator
type CoordinatorConfig struct {
	Source  Source
	Cameras []*device.Camera

	// StatusPollingInterval enables the periodic status poll when positive
	StatusPollingInterval time.Duration
	// DingPollingInterval enables the ding poll when positive
	DingPollingInterval time.Duration
	// ThrottleWindow defaults to DefaultThrottleWindow
	ThrottleWindow time.Duration

	Clock   clock.Clock
	Logger  *zap.Logger
	Metrics *metrics.Poller
}

// Coordinator keeps the tracked cameras up to date.
//
// The status pipeline merges explicit refresh requests with a debounce poll
// timer. Requests pass a leading-edge limiter, are merged with poll ticks and
// pass a second limiter; each surviving trigger fetches the inventory. A
// newer trigger supersedes an in-flight fetch, whose result is then
// discarded. The poll timer is re-armed after every applied result, so it
// fires interval after the last refresh rather than on a fixed schedule.
//
// The ding pipeline is a plain loop: fetch, dispatch, sleep.
type Coordinator struct {
	source         Source
	cameras        []*device.Camera
	byID           map[int64]*device.Camera
	statusInterval time.Duration
	dingInterval   time.Duration
	clock          clock.Clock
	logger         *zap.Logger
	metrics        *metrics.Poller

	requests  chan struct{}
	pollTicks chan struct{}
	results   chan statusResult

	// owned by the status goroutine
	requestLimiter *leadingEdge
	mergedLimiter  *leadingEdge
	pollTimer      *clock.Timer
	cancelFetch    context.CancelFunc
	generation     uint64
	state          pipelineState

	startOnce sync.Once
	wg        sync.WaitGroup
}

type statusResult struct {
	generation uint64
	started    time.Time
	inventory  *client.DeviceInventory
	err        error
}

// NewCoordinator creates a coordinator and subscribes it to refresh
// requests of the given cameras. Nothing is polled until Start.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.ThrottleWindow <= 0 {
		cfg.ThrottleWindow = DefaultThrottleWindow
	}

	c := &Coordinator{
		source:         cfg.Source,
		cameras:        append([]*device.Camera(nil), cfg.Cameras...),
		byID:           make(map[int64]*device.Camera, len(cfg.Cameras)),
		statusInterval: cfg.StatusPollingInterval,
		dingInterval:   cfg.DingPollingInterval,
		clock:          cfg.Clock,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
		requests:       make(chan struct{}, 1),
		pollTicks:      make(chan struct{}, 1),
		results:        make(chan statusResult),
		requestLimiter: newLeadingEdge(cfg.ThrottleWindow),
		mergedLimiter:  newLeadingEdge(cfg.ThrottleWindow),
	}

	for _, cam := range c.cameras {
		c.byID[cam.ID()] = cam
		cam.OnRequestUpdate(func(*device.Camera) {
			select {
			case c.requests <- struct{}{}:
			default:
				// one pending request is as good as many
			}
		})
	}

	return c
}

// Start launches the pipelines. They run until ctx is cancelled. With no
// tracked cameras nothing is started.
func (c *Coordinator) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		c.metrics.SetTrackedCameras(len(c.cameras))
		if len(c.cameras) == 0 {
			c.logger.Info("No cameras tracked, polling disabled")
			return
		}

		c.wg.Add(1)
		go c.runStatus(ctx)

		if c.dingInterval > 0 {
			c.wg.Add(1)
			go c.runDings(ctx)
		}

		c.logger.Info("Update coordinator started",
			zap.Int("cameras", len(c.cameras)),
			zap.Duration("status_interval", c.statusInterval),
			zap.Duration("ding_interval", c.dingInterval))
	})
}

// Wait blocks until the pipelines have exited
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

func (c *Coordinator) runStatus(ctx context.Context) {
	defer c.wg.Done()
	defer c.stopStatus()

	if c.statusInterval > 0 {
		c.trigger(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case <-c.requests:
			if !c.requestLimiter.Allow(c.clock.Now()) {
				c.metrics.TriggerDropped(sourceRequest)
				continue
			}
			c.trigger(ctx)

		case <-c.pollTicks:
			c.trigger(ctx)

		case res := <-c.results:
			c.resolve(res)
		}
	}
}

// trigger starts a fetch, superseding any fetch still in flight
func (c *Coordinator) trigger(ctx context.Context) {
	if !c.mergedLimiter.Allow(c.clock.Now()) {
		c.metrics.TriggerDropped(sourceMerged)
		return
	}

	if c.cancelFetch != nil {
		c.cancelFetch()
		c.metrics.StaleResult()
		c.logger.Debug("Superseding in-flight status fetch", zap.Uint64("generation", c.generation))
	}

	c.logger.Debug("Status fetch triggered", zap.Stringer("previous_state", c.state))

	c.generation++
	gen := c.generation
	fetchCtx, cancel := context.WithCancel(ctx)
	c.cancelFetch = cancel
	c.state = stateInFlight
	started := c.clock.Now()

	go func() {
		inventory, err := c.source.FetchDevices(fetchCtx)
		select {
		case c.results <- statusResult{generation: gen, started: started, inventory: inventory, err: err}:
		case <-ctx.Done():
		}
	}()
}

// resolve applies a fetch result unless a newer fetch has superseded it
func (c *Coordinator) resolve(res statusResult) {
	if res.generation != c.generation {
		return
	}

	c.cancelFetch()
	c.cancelFetch = nil
	c.metrics.FetchCompleted(metrics.PipelineStatus, c.clock.Now().Sub(res.started), res.err)
	c.armPollTimer()

	if res.err != nil {
		c.logger.Debug("Status fetch failed", zap.Error(res.err))
		return
	}
	if res.inventory == nil {
		return
	}

	for _, data := range res.inventory.AllCameras() {
		if cam, ok := c.byID[data.ID]; ok {
			cam.UpdateData(data)
		}
	}
}

func (c *Coordinator) armPollTimer() {
	if c.statusInterval <= 0 {
		c.state = stateIdle
		return
	}

	c.pollTimer.Stop()
	c.pollTimer = c.clock.AfterFunc(c.statusInterval, func() {
		select {
		case c.pollTicks <- struct{}{}:
		default:
		}
	})
	c.state = stateWaiting
}

func (c *Coordinator) stopStatus() {
	c.pollTimer.Stop()
	if c.cancelFetch != nil {
		c.cancelFetch()
		c.cancelFetch = nil
	}
	c.state = stateIdle
}

func (c *Coordinator) runDings(ctx context.Context) {
	defer c.wg.Done()

	for {
		started := c.clock.Now()
		dings, err := c.source.FetchActiveDings(ctx)
		if ctx.Err() != nil {
			return
		}

		c.metrics.FetchCompleted(metrics.PipelineDings, c.clock.Now().Sub(started), err)
		if err != nil {
			c.logger.Debug("Active dings fetch failed", zap.Error(err))
		} else {
			c.dispatchDings(dings)
		}

		select {
		case <-ctx.Done():
			return
		case <-c.clock.After(c.dingInterval):
		}
	}
}

// dispatchDings hands each tracked camera the dings addressed to it.
// Cameras without dings are not called.
func (c *Coordinator) dispatchDings(dings []client.ActiveDing) {
	if len(dings) == 0 {
		return
	}

	grouped := make(map[int64][]client.ActiveDing)
	for _, ding := range dings {
		grouped[ding.DoorbotID] = append(grouped[ding.DoorbotID], ding)
	}

	dispatched := 0
	for _, cam := range c.cameras {
		own := grouped[cam.ID()]
		if len(own) == 0 {
			continue
		}
		cam.ProcessActiveDings(own)
		dispatched += len(own)
	}
	c.metrics.DingsDispatched(dispatched)
}
