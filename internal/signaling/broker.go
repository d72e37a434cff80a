package signaling

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/berrylive/live-service/internal/config"
	"github.com/berrylive/live-service/internal/domain"
	"github.com/berrylive/live-service/pkg/log"
)

// State is the broker's connection state.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateConnected  State = "connected"
	StateFailed     State = "failed"
	StateStopped    State = "stopped"
)

// Direction selects which side of the gateway the broker negotiates.
type Direction string

const (
	DirectionPublish Direction = "publish"
	DirectionPlay    Direction = "play"
)

// Broker owns one WebRTC session against the media gateway. It drives the
// whole negotiation: offer creation, ICE gathering, the HTTP exchange and
// retries. Stop is safe to call from any state and any number of times;
// the media source is released on every terminal path.
type Broker struct {
	cfg    config.SignalingConfig
	client *Client
	source MediaSource

	mu        sync.Mutex
	state     State
	pc        *webrtc.PeerConnection
	sessionID string
	streamURL string
	released  bool
	onTrack   func(*webrtc.TrackRemote, *webrtc.RTPReceiver)
}

// NewBroker creates a broker in the idle state.
func NewBroker(cfg config.SignalingConfig, client *Client, source MediaSource) *Broker {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Broker{
		cfg:    cfg,
		client: client,
		source: source,
		state:  StateIdle,
	}
}

// OnTrack registers the callback receiving inbound tracks on play
// sessions. Must be set before Connect.
func (b *Broker) OnTrack(fn func(*webrtc.TrackRemote, *webrtc.RTPReceiver)) {
	b.mu.Lock()
	b.onTrack = fn
	b.mu.Unlock()
}

// State returns the broker's current state.
func (b *Broker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// SessionID returns the gateway session id once connected.
func (b *Broker) SessionID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessionID
}

// Connect negotiates a session for the given stream. Failed attempts back
// off linearly; when the attempt budget runs out the broker lands in the
// failed state with its media released.
func (b *Broker) Connect(ctx context.Context, dir Direction, streamURL string) error {
	b.mu.Lock()
	if b.state == StateConnecting || b.state == StateConnected {
		b.mu.Unlock()
		return fmt.Errorf("%w: broker already %s", domain.ErrValidation, b.state)
	}
	if b.state == StateStopped {
		b.mu.Unlock()
		return fmt.Errorf("%w: broker is stopped", domain.ErrValidation)
	}
	b.state = StateConnecting
	b.mu.Unlock()

	l := log.Ctx(ctx)

	var lastErr error
	for attempt := 1; attempt <= b.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := time.Duration(attempt-1) * b.cfg.RetryDelay
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				b.fail()
				return ctx.Err()
			}
		}

		err := b.attempt(ctx, dir, streamURL)
		if err == nil {
			l.Info().
				Str(log.FieldStream, streamURL).
				Int("attempt", attempt).
				Msg("signaling session established")
			return nil
		}
		lastErr = err
		l.Warn().Err(err).
			Str(log.FieldStream, streamURL).
			Int("attempt", attempt).
			Msg("signaling attempt failed")

		if ctx.Err() != nil {
			b.fail()
			return ctx.Err()
		}
	}

	b.fail()
	l.Error().Err(lastErr).Str(log.FieldStream, streamURL).Msg("signaling gave up")
	return lastErr
}

func (b *Broker) attempt(ctx context.Context, dir Direction, streamURL string) error {
	rtcConfig := webrtc.Configuration{}
	if len(b.cfg.ICEServers) > 0 {
		rtcConfig.ICEServers = []webrtc.ICEServer{{URLs: b.cfg.ICEServers}}
	}
	pc, err := webrtc.NewPeerConnection(rtcConfig)
	if err != nil {
		return err
	}

	ok := false
	defer func() {
		if !ok {
			pc.Close()
		}
	}()

	if dir == DirectionPlay {
		b.mu.Lock()
		onTrack := b.onTrack
		b.mu.Unlock()
		if onTrack != nil {
			pc.OnTrack(onTrack)
		}
		for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeVideo, webrtc.RTPCodecTypeAudio} {
			if _, err := pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
				Direction: webrtc.RTPTransceiverDirectionRecvonly,
			}); err != nil {
				return err
			}
		}
	} else {
		tracks, err := b.source.Tracks()
		if err != nil {
			return err
		}
		for _, track := range tracks {
			if _, err := pc.AddTrack(track); err != nil {
				return err
			}
		}
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return err
	}

	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		return err
	}

	// Wait for ICE gathering, but only so long. A slow STUN round-trip
	// should not stall the whole negotiation; the offer gathered so far is
	// good enough for the gateway.
	select {
	case <-gatherComplete:
	case <-time.After(b.cfg.GatherTimeout):
	case <-ctx.Done():
		return ctx.Err()
	}

	local := pc.LocalDescription()
	if local == nil {
		return fmt.Errorf("%w: no local description", domain.ErrSignalingFailure)
	}

	var resp *SDPResponse
	switch dir {
	case DirectionPlay:
		resp, err = b.client.Play(ctx, streamURL, local.SDP)
	default:
		resp, err = b.client.Publish(ctx, streamURL, local.SDP)
	}
	if err != nil {
		return err
	}

	answer := webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  SanitizeAnswer(resp.SDPAnswer),
	}
	if err := pc.SetRemoteDescription(answer); err != nil {
		return fmt.Errorf("%w: answer rejected: %v", domain.ErrSignalingFailure, err)
	}

	b.mu.Lock()
	if b.state == StateStopped {
		b.mu.Unlock()
		pc.Close()
		return fmt.Errorf("%w: broker stopped during negotiation", domain.ErrValidation)
	}
	b.pc = pc
	b.sessionID = resp.SessionID
	b.streamURL = streamURL
	b.state = StateConnected
	b.mu.Unlock()

	ok = true
	return nil
}

// Stop tears the session down. It closes the peer connection, releases
// the media source and tells the gateway to drop its side. All of that
// happens at most once no matter how often Stop is called.
func (b *Broker) Stop(ctx context.Context) error {
	b.mu.Lock()
	if b.state == StateStopped {
		b.mu.Unlock()
		return nil
	}
	b.state = StateStopped
	pc := b.pc
	streamURL := b.streamURL
	b.pc = nil
	released := b.released
	b.released = true
	b.mu.Unlock()

	if pc != nil {
		if err := pc.Close(); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("peer connection close failed")
		}
	}
	if !released {
		b.source.Release()
	}

	if streamURL != "" {
		if err := b.client.Stop(ctx, streamURL); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str(log.FieldStream, streamURL).Msg("gateway stop failed")
		}
	}

	log.Ctx(ctx).Info().Msg("signaling session stopped")
	return nil
}

func (b *Broker) fail() {
	b.mu.Lock()
	if b.state == StateStopped {
		b.mu.Unlock()
		return
	}
	b.state = StateFailed
	released := b.released
	b.released = true
	b.mu.Unlock()

	if !released {
		b.source.Release()
	}
}
