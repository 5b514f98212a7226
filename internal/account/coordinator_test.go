package account

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/yourusername/ringwatch/internal/client"
	"github.com/yourusername/ringwatch/internal/clock"
	"github.com/yourusername/ringwatch/internal/device"
)

func startCoordinator(t *testing.T, api *fakeAPI, cameras []*device.Camera, status, dings time.Duration) *clock.FakeClock {
	t.Helper()

	clk := clock.Fake(epoch)
	c := NewCoordinator(CoordinatorConfig{
		Source:                api,
		Cameras:               cameras,
		StatusPollingInterval: status,
		DingPollingInterval:   dings,
		Clock:                 clk,
		Logger:                zaptest.NewLogger(t),
	})

	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	t.Cleanup(func() {
		cancel()
		c.Wait()
	})
	return clk
}

func trackedCameras(ids ...int64) []*device.Camera {
	out := make([]*device.Camera, 0, len(ids))
	for _, id := range ids {
		out = append(out, device.NewCamera(cameraData(id, "L1", "initial"), false))
	}
	return out
}

// countUpdates counts data notifications per camera
func countUpdates(cameras []*device.Camera) map[int64]*atomic.Int32 {
	counts := make(map[int64]*atomic.Int32, len(cameras))
	for _, cam := range cameras {
		n := &atomic.Int32{}
		counts[cam.ID()] = n
		cam.OnData(func(*device.Camera, client.CameraData) { n.Add(1) })
	}
	return counts
}

func TestRequestBurstYieldsOneFetch(t *testing.T) {
	api := &fakeAPI{}
	cameras := trackedCameras(1, 2)
	api.setInventory(&client.DeviceInventory{StickupCams: []client.CameraData{
		cameraData(1, "L1", "one"), cameraData(2, "L1", "two"),
	}}, nil)
	startCoordinator(t, api, cameras, 0, 0)

	for i := 0; i < 10; i++ {
		cameras[0].RequestUpdate()
		cameras[1].RequestUpdate()
	}

	assert.Eventually(t, func() bool { return api.deviceCalls.Load() == 1 }, waitFor, tick)
	assert.Never(t, func() bool { return api.deviceCalls.Load() > 1 }, settle, tick)
}

func TestRequestAfterWindowFetchesAgain(t *testing.T) {
	api := &fakeAPI{}
	cameras := trackedCameras(1)
	api.setInventory(&client.DeviceInventory{}, nil)
	clk := startCoordinator(t, api, cameras, 0, 0)

	cameras[0].RequestUpdate()
	require.Eventually(t, func() bool { return api.deviceCalls.Load() == 1 }, waitFor, tick)

	clk.Advance(400 * time.Millisecond)
	cameras[0].RequestUpdate()
	assert.Never(t, func() bool { return api.deviceCalls.Load() > 1 }, settle, tick)

	clk.Advance(100 * time.Millisecond)
	cameras[0].RequestUpdate()
	assert.Eventually(t, func() bool { return api.deviceCalls.Load() == 2 }, waitFor, tick)
}

func TestFetchErrorDoesNotStopPipeline(t *testing.T) {
	api := &fakeAPI{}
	cameras := trackedCameras(1)
	api.setInventory(nil, errors.New("service unavailable"))
	clk := startCoordinator(t, api, cameras, 0, 0)

	cameras[0].RequestUpdate()
	require.Eventually(t, func() bool { return api.deviceCalls.Load() == 1 }, waitFor, tick)
	assert.Equal(t, "initial", cameras[0].Name())

	api.setInventory(&client.DeviceInventory{StickupCams: []client.CameraData{
		cameraData(1, "L1", "recovered"),
	}}, nil)
	clk.Advance(time.Second)
	cameras[0].RequestUpdate()

	assert.Eventually(t, func() bool { return cameras[0].Name() == "recovered" }, waitFor, tick)
	assert.Equal(t, int32(2), api.deviceCalls.Load())
}

func TestOnlyReturnedCameraIsUpdated(t *testing.T) {
	api := &fakeAPI{}
	cameras := trackedCameras(1, 2)
	counts := countUpdates(cameras)

	var got client.CameraData
	var mu sync.Mutex
	cameras[0].OnData(func(_ *device.Camera, data client.CameraData) {
		mu.Lock()
		got = data
		mu.Unlock()
	})

	record := cameraData(1, "L1", "updated")
	record.BatteryLife = "87"
	api.setInventory(&client.DeviceInventory{StickupCams: []client.CameraData{record}}, nil)
	startCoordinator(t, api, cameras, 0, 0)

	cameras[1].RequestUpdate()

	require.Eventually(t, func() bool { return counts[1].Load() == 1 }, waitFor, tick)
	assert.Never(t, func() bool { return counts[1].Load() > 1 || counts[2].Load() > 0 }, settle, tick)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, record, got)
	assert.Equal(t, "initial", cameras[1].Name())
}

func TestUntrackedRecordsAreIgnored(t *testing.T) {
	api := &fakeAPI{}
	cameras := trackedCameras(1)
	counts := countUpdates(cameras)
	api.setInventory(&client.DeviceInventory{
		DoorbotsList: []client.CameraData{cameraData(7, "L2", "elsewhere")},
	}, nil)
	startCoordinator(t, api, cameras, 0, 0)

	cameras[0].RequestUpdate()

	require.Eventually(t, func() bool { return api.deviceCalls.Load() == 1 }, waitFor, tick)
	assert.Never(t, func() bool { return counts[1].Load() > 0 }, settle, tick)
}

func TestStatusPollingFetchesImmediatelyThenAfterInterval(t *testing.T) {
	api := &fakeAPI{}
	cameras := trackedCameras(1)
	api.setInventory(&client.DeviceInventory{}, nil)
	clk := startCoordinator(t, api, cameras, 30*time.Second, 0)

	require.Eventually(t, func() bool { return api.deviceCalls.Load() == 1 }, waitFor, tick)

	clk.WaitForTimers(1)
	clk.Advance(29 * time.Second)
	assert.Never(t, func() bool { return api.deviceCalls.Load() > 1 }, settle, tick)

	clk.Advance(time.Second)
	require.Eventually(t, func() bool { return api.deviceCalls.Load() == 2 }, waitFor, tick)

	clk.WaitForTimers(1)
	clk.Advance(30 * time.Second)
	assert.Eventually(t, func() bool { return api.deviceCalls.Load() == 3 }, waitFor, tick)
}

func TestRequestPostponesPoll(t *testing.T) {
	api := &fakeAPI{}
	cameras := trackedCameras(1)
	counts := countUpdates(cameras)
	api.setInventory(&client.DeviceInventory{StickupCams: []client.CameraData{
		cameraData(1, "L1", "polled"),
	}}, nil)
	clk := startCoordinator(t, api, cameras, 30*time.Second, 0)

	require.Eventually(t, func() bool { return counts[1].Load() == 1 }, waitFor, tick)

	clk.Advance(20 * time.Second)
	cameras[0].RequestUpdate()
	require.Eventually(t, func() bool { return counts[1].Load() == 2 }, waitFor, tick)

	// the poll is now due 30s after the request, not at the 30s mark
	clk.Advance(10 * time.Second)
	assert.Never(t, func() bool { return api.deviceCalls.Load() > 2 }, settle, tick)

	clk.Advance(20 * time.Second)
	assert.Eventually(t, func() bool { return api.deviceCalls.Load() == 3 }, waitFor, tick)
}

func TestPollTimerRearmedAfterError(t *testing.T) {
	api := &fakeAPI{}
	cameras := trackedCameras(1)
	api.setInventory(nil, errors.New("timeout"))
	clk := startCoordinator(t, api, cameras, 10*time.Second, 0)

	require.Eventually(t, func() bool { return api.deviceCalls.Load() == 1 }, waitFor, tick)

	api.setInventory(&client.DeviceInventory{StickupCams: []client.CameraData{
		cameraData(1, "L1", "back"),
	}}, nil)
	clk.WaitForTimers(1)
	clk.Advance(10 * time.Second)

	assert.Eventually(t, func() bool { return cameras[0].Name() == "back" }, waitFor, tick)
}

func TestNewerTriggerDiscardsStaleResult(t *testing.T) {
	api := &fakeAPI{}
	cameras := trackedCameras(1)
	counts := countUpdates(cameras)

	release := make(chan struct{})
	firstCtx := make(chan context.Context, 1)
	api.devicesHook = func(ctx context.Context, call int32) (*client.DeviceInventory, error) {
		if call == 1 {
			firstCtx <- ctx
			<-release
			return &client.DeviceInventory{StickupCams: []client.CameraData{cameraData(1, "L1", "stale")}}, nil
		}
		return &client.DeviceInventory{StickupCams: []client.CameraData{cameraData(1, "L1", "fresh")}}, nil
	}
	clk := startCoordinator(t, api, cameras, 0, 0)

	cameras[0].RequestUpdate()
	var ctx context.Context
	select {
	case ctx = <-firstCtx:
	case <-time.After(waitFor):
		t.Fatal("first fetch never started")
	}

	clk.Advance(500 * time.Millisecond)
	cameras[0].RequestUpdate()

	require.Eventually(t, func() bool { return cameras[0].Name() == "fresh" }, waitFor, tick)
	assert.Eventually(t, func() bool { return ctx.Err() != nil }, waitFor, tick)

	close(release)
	assert.Never(t, func() bool { return cameras[0].Name() == "stale" }, settle, tick)
	assert.Equal(t, int32(1), counts[1].Load())
}

func TestStatusPollingDisabledWaitsForRequests(t *testing.T) {
	api := &fakeAPI{}
	api.setInventory(&client.DeviceInventory{}, nil)
	startCoordinator(t, api, trackedCameras(1), 0, 0)

	assert.Never(t, func() bool { return api.deviceCalls.Load() > 0 }, settle, tick)
}

func TestNoCamerasStartsNothing(t *testing.T) {
	api := &fakeAPI{}
	startCoordinator(t, api, nil, time.Second, time.Second)

	assert.Never(t, func() bool {
		return api.deviceCalls.Load() > 0 || api.dingCalls.Load() > 0
	}, settle, tick)
}

func TestDingsPartitionedByCamera(t *testing.T) {
	api := &fakeAPI{}
	cameras := trackedCameras(1, 2, 3)
	cameras[1].ProcessActiveDings([]client.ActiveDing{ding("old", 2)})

	var mu sync.Mutex
	received := make(map[int64][]string)
	for _, cam := range cameras {
		cam.OnDing(func(c *device.Camera, d client.ActiveDing) {
			assert.Equal(t, c.ID(), d.DoorbotID)
			mu.Lock()
			received[c.ID()] = append(received[c.ID()], d.Key())
			mu.Unlock()
		})
	}

	api.setDings([]client.ActiveDing{
		ding("a", 1), ding("b", 3), ding("c", 1), ding("x", 99),
	}, nil)
	startCoordinator(t, api, cameras, 0, 5*time.Second)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received[1]) == 2 && len(received[3]) == 1
	}, waitFor, tick)

	mu.Lock()
	assert.Equal(t, []string{"a", "c"}, received[1])
	assert.Equal(t, []string{"b"}, received[3])
	assert.Empty(t, received[2])
	mu.Unlock()

	// camera 2 had no dings this cycle and was not called
	active := cameras[1].ActiveDings()
	require.Len(t, active, 1)
	assert.Equal(t, "old", active[0].Key())
}

func TestDingPollRepeatsAfterInterval(t *testing.T) {
	api := &fakeAPI{}
	api.setDings(nil, nil)
	clk := startCoordinator(t, api, trackedCameras(1), 0, 5*time.Second)

	require.Eventually(t, func() bool { return api.dingCalls.Load() == 1 }, waitFor, tick)

	clk.WaitForTimers(1)
	clk.Advance(4 * time.Second)
	assert.Never(t, func() bool { return api.dingCalls.Load() > 1 }, settle, tick)

	clk.Advance(time.Second)
	assert.Eventually(t, func() bool { return api.dingCalls.Load() == 2 }, waitFor, tick)
}

func TestDingFetchErrorDoesNotStopLoop(t *testing.T) {
	api := &fakeAPI{}
	cameras := trackedCameras(1)
	api.setDings(nil, errors.New("bad gateway"))

	var seen atomic.Int32
	cameras[0].OnDing(func(*device.Camera, client.ActiveDing) { seen.Add(1) })
	clk := startCoordinator(t, api, cameras, 0, 5*time.Second)

	require.Eventually(t, func() bool { return api.dingCalls.Load() == 1 }, waitFor, tick)

	api.setDings([]client.ActiveDing{ding("d1", 1)}, nil)
	clk.WaitForTimers(1)
	clk.Advance(5 * time.Second)

	assert.Eventually(t, func() bool { return seen.Load() == 1 }, waitFor, tick)
}

func TestPipelineStateString(t *testing.T) {
	assert.Equal(t, "idle", stateIdle.String())
	assert.Equal(t, "waiting", stateWaiting.String())
	assert.Equal(t, "in_flight", stateInFlight.String())
}
