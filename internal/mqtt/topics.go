package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is used when no prefix is configured
const DefaultTopicPrefix = "ring"

// Topics builds the topic names published by ringwatch.
//
//	topics := mqtt.Topics{Prefix: "ring"}
//	topics.CameraState("L1", 42)
//	// Returns: "ring/L1/camera/42/state"
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	p := strings.TrimSuffix(t.Prefix, "/")
	if p == "" {
		return DefaultTopicPrefix
	}
	return p
}

// CameraState is the retained status topic of a camera
func (t Topics) CameraState(locationID string, cameraID int64) string {
	return fmt.Sprintf("%s/%s/camera/%d/state", t.prefix(), locationID, cameraID)
}

// CameraDing is the event topic for new dings of a camera
func (t Topics) CameraDing(locationID string, cameraID int64) string {
	return fmt.Sprintf("%s/%s/camera/%d/ding", t.prefix(), locationID, cameraID)
}

// Status is the retained online/offline topic of this process
func (t Topics) Status() string {
	return t.prefix() + "/status"
}
