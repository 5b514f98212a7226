package client

import (
	"encoding/json"
	"time"
)

// Location is a raw location record from the locations endpoint
type Location struct {
	LocationID     string          `json:"location_id"`
	OwnerID        int64           `json:"owner_id"`
	Name           string          `json:"name"`
	GeoCoordinates *GeoCoordinates `json:"geo_coordinates,omitempty"`
	Address        *Address        `json:"address,omitempty"`
	CreatedAt      string          `json:"created_at,omitempty"`
	UpdatedAt      string          `json:"updated_at,omitempty"`
}

// GeoCoordinates of a location
type GeoCoordinates struct {
	Latitude  json.Number `json:"latitude"`
	Longitude json.Number `json:"longitude"`
}

// Address of a location
type Address struct {
	Address1 string `json:"address1"`
	Address2 string `json:"address2,omitempty"`
	City     string `json:"city"`
	State    string `json:"state"`
	ZipCode  string `json:"zip_code"`
	Country  string `json:"country"`
	Timezone string `json:"timezone"`
}

// CameraData is the status record for a doorbot or stickup cam
type CameraData struct {
	ID                int64          `json:"id"`
	Description       string         `json:"description"`
	DeviceID          string         `json:"device_id"`
	Kind              string         `json:"kind"`
	LocationID        string         `json:"location_id"`
	FirmwareVersion   string         `json:"firmware_version,omitempty"`
	BatteryLife       json.Number    `json:"battery_life,omitempty"`
	LedStatus         string         `json:"led_status,omitempty"`
	SirenStatus       *SirenStatus   `json:"siren_status,omitempty"`
	Alerts            *Alerts        `json:"alerts,omitempty"`
	Subscribed        bool           `json:"subscribed"`
	SubscribedMotions bool           `json:"subscribed_motions"`
	Settings          map[string]any `json:"settings,omitempty"`
}

// SirenStatus reports a running siren
type SirenStatus struct {
	SecondsRemaining int `json:"seconds_remaining"`
}

// Alerts carries connection/battery alert states
type Alerts struct {
	Connection string `json:"connection,omitempty"`
	Battery    string `json:"battery,omitempty"`
}

// Device is a non-camera device (base station, beams bridge, chime)
type Device struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	DeviceID    string `json:"device_id,omitempty"`
	Kind        string `json:"kind"`
	LocationID  string `json:"location_id"`
}

// DeviceInventory is the categorized response of the ring_devices endpoint
type DeviceInventory struct {
	DoorbotsList       []CameraData `json:"doorbots"`
	AuthorizedDoorbots []CameraData `json:"authorized_doorbots"`
	StickupCams        []CameraData `json:"stickup_cams"`
	BaseStations       []Device     `json:"base_stations"`
	BeamsBridges       []Device     `json:"beams_bridges"`
	Chimes             []Device     `json:"chimes"`
}

// Doorbots returns owned doorbots followed by shared (authorized) ones.
func (d *DeviceInventory) Doorbots() []CameraData {
	out := make([]CameraData, 0, len(d.DoorbotsList)+len(d.AuthorizedDoorbots))
	out = append(out, d.DoorbotsList...)
	return append(out, d.AuthorizedDoorbots...)
}

// AllCameras returns the doorbot bucket followed by the stickup bucket.
func (d *DeviceInventory) AllCameras() []CameraData {
	doorbots := d.Doorbots()
	out := make([]CameraData, 0, len(doorbots)+len(d.StickupCams))
	out = append(out, doorbots...)
	return append(out, d.StickupCams...)
}

// Hubs returns base stations followed by beams bridges.
func (d *DeviceInventory) Hubs() []Device {
	out := make([]Device, 0, len(d.BaseStations)+len(d.BeamsBridges))
	out = append(out, d.BaseStations...)
	return append(out, d.BeamsBridges...)
}

// ActiveDing is one entry of the dings/active endpoint
type ActiveDing struct {
	ID                 json.Number `json:"id"`
	IDStr              string      `json:"id_str"`
	State              string      `json:"state"`
	Protocol           string      `json:"protocol,omitempty"`
	DoorbotID          int64       `json:"doorbot_id"`
	DoorbotDescription string      `json:"doorbot_description"`
	DeviceKind         string      `json:"device_kind"`
	Motion             bool        `json:"motion"`
	SnapshotURL        string      `json:"snapshot_url,omitempty"`
	Kind               string      `json:"kind"`
	ExpiresIn          int         `json:"expires_in"`
	Now                float64     `json:"now"`
}

// Key returns a stable identifier for the ding.
func (d ActiveDing) Key() string {
	if d.IDStr != "" {
		return d.IDStr
	}
	return d.ID.String()
}

// HistoryEvent is one recorded event from doorbots/history
type HistoryEvent struct {
	ID        json.Number       `json:"id"`
	IDStr     string            `json:"id_str,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Answered  bool              `json:"answered"`
	Favorite  bool              `json:"favorite"`
	Kind      string            `json:"kind"`
	Doorbot   HistoryDoorbot    `json:"doorbot"`
	Recording *HistoryRecording `json:"recording,omitempty"`
}

// HistoryDoorbot identifies the camera an event belongs to
type HistoryDoorbot struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
}

// HistoryRecording describes the event's recording state
type HistoryRecording struct {
	Status string `json:"status"`
}

// tokenResponse is the OAuth token grant response
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
	TokenType    string `json:"token_type"`
}

// locationsResponse wraps the locations list
type locationsResponse struct {
	UserLocations []Location `json:"user_locations"`
}
