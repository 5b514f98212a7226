package device

import (
	"sync"

	"github.com/yourusername/ringwatch/internal/client"
)

// Camera is a doorbot or stickup cam. Its identity and class are fixed at
// construction; only its status data changes afterwards.
type Camera struct {
	id        int64
	isDoorbot bool

	data client.CameraData
	// most recent active dings, keyed by ding id
	activeDings map[string]client.ActiveDing
	mutex       sync.RWMutex

	listeners   listeners
	listenMutex sync.RWMutex
}

type listeners struct {
	onData          []func(*Camera, client.CameraData)
	onDing          []func(*Camera, client.ActiveDing)
	onRequestUpdate []func(*Camera)
}

// NewCamera creates a camera from its initial inventory record
func NewCamera(data client.CameraData, isDoorbot bool) *Camera {
	return &Camera{
		id:          data.ID,
		isDoorbot:   isDoorbot,
		data:        data,
		activeDings: make(map[string]client.ActiveDing),
	}
}

// ID returns the vendor id of the camera
func (c *Camera) ID() int64 { return c.id }

// IsDoorbot reports whether the camera came from the doorbot bucket
func (c *Camera) IsDoorbot() bool { return c.isDoorbot }

// Name returns the user-visible description
func (c *Camera) Name() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.data.Description
}

// LocationID returns the owning location id
func (c *Camera) LocationID() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.data.LocationID
}

// Data returns the latest known status record
func (c *Camera) Data() client.CameraData {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.data
}

// UpdateData replaces the status record and notifies data listeners.
// Records for a different camera id are ignored.
func (c *Camera) UpdateData(data client.CameraData) {
	if data.ID != c.id {
		return
	}

	c.mutex.Lock()
	c.data = data
	c.mutex.Unlock()

	c.listenMutex.RLock()
	fns := c.listeners.onData
	c.listenMutex.RUnlock()
	for _, fn := range fns {
		fn(c, data)
	}
}

// ProcessActiveDings records the dings addressed to this camera. Dings
// already reported in the previous call are not reported again.
func (c *Camera) ProcessActiveDings(dings []client.ActiveDing) {
	var fresh []client.ActiveDing

	c.mutex.Lock()
	next := make(map[string]client.ActiveDing, len(dings))
	for _, ding := range dings {
		if ding.DoorbotID != c.id {
			continue
		}
		key := ding.Key()
		if _, seen := c.activeDings[key]; !seen {
			fresh = append(fresh, ding)
		}
		next[key] = ding
	}
	c.activeDings = next
	c.mutex.Unlock()

	c.listenMutex.RLock()
	fns := c.listeners.onDing
	c.listenMutex.RUnlock()
	for _, ding := range fresh {
		for _, fn := range fns {
			fn(c, ding)
		}
	}
}

// ActiveDings returns the dings seen in the most recent poll
func (c *Camera) ActiveDings() []client.ActiveDing {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	out := make([]client.ActiveDing, 0, len(c.activeDings))
	for _, ding := range c.activeDings {
		out = append(out, ding)
	}
	return out
}

// RequestUpdate asks whoever tracks this camera to refresh its status soon.
// It never blocks.
func (c *Camera) RequestUpdate() {
	c.listenMutex.RLock()
	fns := c.listeners.onRequestUpdate
	c.listenMutex.RUnlock()
	for _, fn := range fns {
		fn(c)
	}
}

// OnData registers a listener for status updates
func (c *Camera) OnData(fn func(*Camera, client.CameraData)) {
	c.listenMutex.Lock()
	defer c.listenMutex.Unlock()
	c.listeners.onData = append(c.listeners.onData, fn)
}

// OnDing registers a listener for newly seen dings
func (c *Camera) OnDing(fn func(*Camera, client.ActiveDing)) {
	c.listenMutex.Lock()
	defer c.listenMutex.Unlock()
	c.listeners.onDing = append(c.listeners.onDing, fn)
}

// OnRequestUpdate registers a listener for refresh requests
func (c *Camera) OnRequestUpdate(fn func(*Camera)) {
	c.listenMutex.Lock()
	defer c.listenMutex.Unlock()
	c.listeners.onRequestUpdate = append(c.listeners.onRequestUpdate, fn)
}
