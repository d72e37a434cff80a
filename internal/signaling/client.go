// Package signaling negotiates WebRTC sessions with the media gateway.
// The broker owns the peer connection lifecycle; the client speaks the
// gateway's HTTP signaling contract.
package signaling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/berrylive/live-service/internal/domain"
)

// SDPRequest is the offer sent to the gateway.
type SDPRequest struct {
	StreamURL string `json:"streamUrl"`
	SDPOffer  string `json:"sdpOffer"`
}

// SDPResponse is the gateway's answer. A non-zero code means the gateway
// rejected the offer.
type SDPResponse struct {
	Code      int    `json:"code"`
	SDPAnswer string `json:"sdpAnswer"`
	SessionID string `json:"sessionId"`
}

// Client talks to the media gateway's signaling API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a signaling client against the given gateway base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Publish submits an offer for an outgoing stream.
func (c *Client) Publish(ctx context.Context, streamURL, sdpOffer string) (*SDPResponse, error) {
	return c.exchange(ctx, "/signaling/publish", streamURL, sdpOffer)
}

// Play submits an offer for an incoming stream.
func (c *Client) Play(ctx context.Context, streamURL, sdpOffer string) (*SDPResponse, error) {
	return c.exchange(ctx, "/signaling/play", streamURL, sdpOffer)
}

// Stop tears the gateway-side session down.
func (c *Client) Stop(ctx context.Context, streamURL string) error {
	body, err := json.Marshal(map[string]string{"streamUrl": streamURL})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/signaling/stop", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: stop request failed: %v", domain.ErrSignalingFailure, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%w: stop returned status %d", domain.ErrSignalingFailure, resp.StatusCode)
	}
	return nil
}

func (c *Client) exchange(ctx context.Context, path, streamURL, sdpOffer string) (*SDPResponse, error) {
	body, err := json.Marshal(SDPRequest{StreamURL: streamURL, SDPOffer: sdpOffer})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: signaling request failed: %v", domain.ErrSignalingFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: gateway returned status %d", domain.ErrSignalingFailure, resp.StatusCode)
	}

	var out SDPResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: invalid gateway response: %v", domain.ErrSignalingFailure, err)
	}
	if out.Code != 0 {
		return nil, fmt.Errorf("%w: gateway rejected offer with code %d", domain.ErrSignalingFailure, out.Code)
	}
	if out.SDPAnswer == "" {
		return nil, fmt.Errorf("%w: gateway returned empty answer", domain.ErrSignalingFailure)
	}
	return &out, nil
}
