package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/ringwatch/internal/account"
	"github.com/yourusername/ringwatch/internal/client"
	"github.com/yourusername/ringwatch/internal/database"
	"github.com/yourusername/ringwatch/internal/device"
)

// newRingServer는 Ring API를 흉내내는 테스트 서버를 띄웁니다
func newRingServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, map[string]any{"access_token": "access", "refresh_token": "refresh", "expires_in": 3600})
	})
	mux.HandleFunc("/clients_api/session", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, map[string]any{"profile": map[string]any{"id": 1}})
	})
	mux.HandleFunc("/clients_api/ring_devices", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, map[string]any{
			"doorbots":            []map[string]any{{"id": 1, "location_id": "L1", "description": "Front Door"}},
			"authorized_doorbots": []map[string]any{},
			"stickup_cams":        []map[string]any{{"id": 3, "location_id": "L2", "description": "Shed"}},
			"base_stations":       []map[string]any{{"id": 10, "location_id": "L2"}},
			"beams_bridges":       []map[string]any{},
		})
	})
	mux.HandleFunc("/rhq/v1/devices/v1/locations", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, map[string]any{"user_locations": []map[string]any{
			{"location_id": "L1", "name": "Home"},
			{"location_id": "L2", "name": "Cabin"},
		}})
	})
	mux.HandleFunc("/clients_api/dings/active", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, []map[string]any{{"id": 77, "id_str": "77", "doorbot_id": 1, "kind": "ding", "state": "ringing"}})
	})
	mux.HandleFunc("/clients_api/doorbots/history", func(w http.ResponseWriter, r *http.Request) {
		writeTestJSON(w, []map[string]any{{"id": 5, "kind": "motion", "created_at": "2026-10-01T12:00:00Z", "doorbot": map[string]any{"id": 1}}})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func writeTestJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// TestEndToEnd는 Ring API부터 HTTP 응답까지 전체 경로를 검증합니다
func TestEndToEnd(t *testing.T) {
	ring := newRingServer(t)

	db, err := database.New(filepath.Join(t.TempDir(), "dings.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := database.NewDingRepository(db, zap.NewNop())

	api := client.NewAPIClient(client.Config{
		RefreshToken: "initial",
		HardwareID:   "hw-1",
		OAuthURL:     ring.URL + "/oauth/token",
		ClientAPIURL: ring.URL + "/clients_api/",
		AppAPIURL:    ring.URL + "/rhq/v1/",
	})

	acct := account.New(account.Config{
		API:     api,
		Options: account.Options{CameraDingsPollingInterval: 20 * time.Millisecond},
		OnReady: func(locations []*device.Location) {
			for _, loc := range locations {
				for _, cam := range loc.Cameras() {
					cam.OnDing(func(c *device.Camera, d client.ActiveDing) {
						_, _ = repo.Insert(context.Background(), database.NewDing(c.Name(), d, time.Now().UTC()))
					})
				}
			}
		},
	})
	t.Cleanup(acct.Close)

	s := NewServer(ServerConfig{Production: true, Logger: zap.NewNop(), Provider: acct, Dings: repo})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	t.Run("Locations", func(t *testing.T) {
		var body struct {
			Locations []locationView `json:"locations"`
		}
		require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/locations", &body))
		require.Len(t, body.Locations, 2)
		assert.Equal(t, "Home", body.Locations[0].Name)
		assert.False(t, body.Locations[0].HasHubDevice)
		assert.True(t, body.Locations[1].HasHubDevice)
		assert.Equal(t, []int64{3}, body.Locations[1].CameraIDs)
	})

	t.Run("CameraNotFound", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+"/api/v1/cameras/42", nil))
	})

	t.Run("DingsRecorded", func(t *testing.T) {
		require.Eventually(t, func() bool {
			var body struct {
				Dings []database.Ding `json:"dings"`
			}
			if getJSON(t, ts.URL+"/api/v1/dings?camera_id=1", &body) != http.StatusOK {
				return false
			}
			return len(body.Dings) == 1 && body.Dings[0].ID == "77"
		}, 2*time.Second, 20*time.Millisecond)

		var cam cameraView
		require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/cameras/1", &cam))
		require.Len(t, cam.ActiveDings, 1)
		assert.Equal(t, "ringing", cam.ActiveDings[0].State)
	})

	t.Run("Refresh", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/api/v1/cameras/3/refresh", "application/json", nil)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	})

	t.Run("History", func(t *testing.T) {
		var body struct {
			Events []client.HistoryEvent `json:"events"`
		}
		require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/v1/history?limit=1", &body))
		require.Len(t, body.Events, 1)
		assert.Equal(t, "motion", body.Events[0].Kind)
	})
}
