package device

import "github.com/yourusername/ringwatch/internal/client"

// Location is a site with its cameras. Membership is fixed at construction.
type Location struct {
	raw          client.Location
	hasHubDevice bool
	cameras      []*Camera
}

// NewLocation creates a location owning the given cameras in order
func NewLocation(raw client.Location, hasHubDevice bool, cameras []*Camera) *Location {
	owned := make([]*Camera, len(cameras))
	copy(owned, cameras)
	return &Location{
		raw:          raw,
		hasHubDevice: hasHubDevice,
		cameras:      owned,
	}
}

// ID returns the vendor location id
func (l *Location) ID() string { return l.raw.LocationID }

// Name returns the location name
func (l *Location) Name() string { return l.raw.Name }

// Raw returns the location record as fetched
func (l *Location) Raw() client.Location { return l.raw }

// HasHubDevice reports whether a base station or beams bridge is installed here
func (l *Location) HasHubDevice() bool { return l.hasHubDevice }

// Cameras returns the cameras at this location
func (l *Location) Cameras() []*Camera {
	out := make([]*Camera, len(l.cameras))
	copy(out, l.cameras)
	return out
}
