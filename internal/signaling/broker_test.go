package signaling

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berrylive/live-service/internal/config"
	"github.com/berrylive/live-service/internal/domain"
)

func testSignalingConfig(baseURL string) config.SignalingConfig {
	return config.SignalingConfig{
		BaseURL:       baseURL,
		Timeout:       5 * time.Second,
		MaxAttempts:   3,
		RetryDelay:    time.Millisecond,
		GatherTimeout: time.Second,
	}
}

// fakeGateway answers offers with a real peer connection so the broker's
// SetRemoteDescription succeeds against a valid SDP.
type fakeGateway struct {
	mu        sync.Mutex
	exchanges int
	stops     []string
	peers     []*webrtc.PeerConnection
}

func (g *fakeGateway) server(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	answer := func(w http.ResponseWriter, r *http.Request) {
		var req SDPRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
		require.NoError(t, err)

		g.mu.Lock()
		g.exchanges++
		g.peers = append(g.peers, pc)
		g.mu.Unlock()

		require.NoError(t, pc.SetRemoteDescription(webrtc.SessionDescription{
			Type: webrtc.SDPTypeOffer,
			SDP:  req.SDPOffer,
		}))
		sdpAnswer, err := pc.CreateAnswer(nil)
		require.NoError(t, err)
		gathered := webrtc.GatheringCompletePromise(pc)
		require.NoError(t, pc.SetLocalDescription(sdpAnswer))
		<-gathered

		json.NewEncoder(w).Encode(SDPResponse{
			SDPAnswer: pc.LocalDescription().SDP,
			SessionID: "sess-1",
		})
	}
	mux.HandleFunc("/signaling/publish", answer)
	mux.HandleFunc("/signaling/play", answer)
	mux.HandleFunc("/signaling/stop", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			StreamURL string `json:"streamUrl"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		g.mu.Lock()
		g.stops = append(g.stops, req.StreamURL)
		g.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		g.mu.Lock()
		peers := g.peers
		g.mu.Unlock()
		for _, pc := range peers {
			pc.Close()
		}
	})
	return srv
}

func (g *fakeGateway) stopCalls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.stops...)
}

// rejectingGateway refuses every offer and counts the attempts.
func rejectingGateway(t *testing.T) (*httptest.Server, *int32) {
	t.Helper()

	var calls int32
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		json.NewEncoder(w).Encode(SDPResponse{Code: 37})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestBrokerConnectAndStop(t *testing.T) {
	gw := &fakeGateway{}
	srv := gw.server(t)

	cfg := testSignalingConfig(srv.URL)
	source, err := NewStaticSource("room1")
	require.NoError(t, err)
	broker := NewBroker(cfg, NewClient(cfg.BaseURL, cfg.Timeout), source)

	require.NoError(t, broker.Connect(context.Background(), DirectionPublish, "rtmp://live/room1"))
	assert.Equal(t, StateConnected, broker.State())
	assert.Equal(t, "sess-1", broker.SessionID())

	require.NoError(t, broker.Stop(context.Background()))
	assert.Equal(t, StateStopped, broker.State())
	assert.True(t, source.Released())
	assert.Equal(t, []string{"rtmp://live/room1"}, gw.stopCalls())

	// A second Stop changes nothing and does not hit the gateway again.
	require.NoError(t, broker.Stop(context.Background()))
	assert.Equal(t, []string{"rtmp://live/room1"}, gw.stopCalls())
}

func TestBrokerRejectsDoubleConnect(t *testing.T) {
	gw := &fakeGateway{}
	srv := gw.server(t)

	cfg := testSignalingConfig(srv.URL)
	source, err := NewStaticSource("room1")
	require.NoError(t, err)
	broker := NewBroker(cfg, NewClient(cfg.BaseURL, cfg.Timeout), source)

	require.NoError(t, broker.Connect(context.Background(), DirectionPlay, "rtmp://live/room1"))
	defer broker.Stop(context.Background())

	err = broker.Connect(context.Background(), DirectionPlay, "rtmp://live/room1")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestBrokerGivesUpAfterRetries(t *testing.T) {
	srv, calls := rejectingGateway(t)

	cfg := testSignalingConfig(srv.URL)
	source, err := NewStaticSource("room1")
	require.NoError(t, err)
	broker := NewBroker(cfg, NewClient(cfg.BaseURL, cfg.Timeout), source)

	err = broker.Connect(context.Background(), DirectionPublish, "rtmp://live/room1")
	require.ErrorIs(t, err, domain.ErrSignalingFailure)

	assert.Equal(t, int32(3), *calls)
	assert.Equal(t, StateFailed, broker.State())
	assert.True(t, source.Released())

	// Stop after failure is still safe.
	require.NoError(t, broker.Stop(context.Background()))
	assert.Equal(t, StateStopped, broker.State())
}

func TestBrokerConnectAfterStopRejected(t *testing.T) {
	cfg := testSignalingConfig("http://127.0.0.1:1")
	source, err := NewStaticSource("room1")
	require.NoError(t, err)
	broker := NewBroker(cfg, NewClient(cfg.BaseURL, cfg.Timeout), source)

	require.NoError(t, broker.Stop(context.Background()))

	err = broker.Connect(context.Background(), DirectionPublish, "rtmp://live/room1")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.True(t, source.Released())
}

func TestClientStopStatusHandling(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, time.Second)
	err := client.Stop(context.Background(), "rtmp://live/room1")
	assert.ErrorIs(t, err, domain.ErrSignalingFailure)
}

func TestClientRejectsEmptyAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(SDPResponse{SessionID: "sess-1"})
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, time.Second)
	_, err := client.Publish(context.Background(), "rtmp://live/room1", "v=0")
	assert.ErrorIs(t, err, domain.ErrSignalingFailure)
}

func TestManagerOneStreamPerRoom(t *testing.T) {
	gw := &fakeGateway{}
	srv := gw.server(t)

	m := NewManager(testSignalingConfig(srv.URL))
	t.Cleanup(func() { m.StopAll(context.Background()) })

	broker, err := m.Start(context.Background(), "room1", "rtmp://live/room1", DirectionPublish)
	require.NoError(t, err)
	assert.Equal(t, StateConnected, broker.State())

	_, err = m.Start(context.Background(), "room1", "rtmp://live/room1", DirectionPublish)
	assert.ErrorIs(t, err, domain.ErrValidation)

	got, ok := m.Get("room1")
	require.True(t, ok)
	assert.Same(t, broker, got)
}

func TestManagerStopIsIdempotent(t *testing.T) {
	gw := &fakeGateway{}
	srv := gw.server(t)

	m := NewManager(testSignalingConfig(srv.URL))

	broker, err := m.Start(context.Background(), "room1", "rtmp://live/room1", DirectionPublish)
	require.NoError(t, err)

	require.NoError(t, m.Stop(context.Background(), "room1"))
	assert.Equal(t, StateStopped, broker.State())

	_, ok := m.Get("room1")
	assert.False(t, ok)

	require.NoError(t, m.Stop(context.Background(), "room1"))
	require.NoError(t, m.Stop(context.Background(), "never-started"))
}

func TestManagerFailedStartFreesRoom(t *testing.T) {
	srv, _ := rejectingGateway(t)

	m := NewManager(testSignalingConfig(srv.URL))

	_, err := m.Start(context.Background(), "room1", "rtmp://live/room1", DirectionPublish)
	require.ErrorIs(t, err, domain.ErrSignalingFailure)

	_, ok := m.Get("room1")
	assert.False(t, ok)
}
