/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package datachannel

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"

	"jinr.ru/greenlab/go-klv/pkg/log"
	"jinr.ru/greenlab/go-klv/pkg/metrics"
)

const (
	DefaultQueueSize     = 100
	DefaultGatherTimeout = 10 * time.Second
	DefaultAnswerTimeout = 30 * time.Second
	DefaultChannelLabel  = "klv"
)

type HubConfig struct {
	ICEServers   []webrtc.ICEServer
	ChannelLabel string
	Ordered      bool
	// Binary sends messages as binary frames instead of text
	Binary        bool
	QueueSize     int
	GatherTimeout time.Duration
	// AnswerTimeout is how long a session waits for the remote answer
	// before it is dropped
	AnswerTimeout time.Duration
	// IncludeLoopback gathers loopback candidates, needed when peers
	// share a host without other interfaces
	IncludeLoopback bool
	Metrics         *metrics.Metrics
}

// Session is a peer connection created by the hub together with the data
// channel records are sent over
type Session struct {
	ID      string
	Created time.Time
	pc      *webrtc.PeerConnection
	dc      *webrtc.DataChannel
	open    atomic.Bool
}

type SessionInfo struct {
	ID          string    `json:"id"`
	Created     time.Time `json:"created"`
	State       string    `json:"state"`
	ChannelOpen bool      `json:"channelOpen"`
}

// Hub owns the WebRTC sessions and fans out published messages to every
// open data channel
type Hub struct {
	cfg HubConfig
	api *webrtc.API

	mu       sync.RWMutex
	sessions map[string]*Session
	newest   *Session
	latest   []byte

	queue     chan []byte
	dropped   atomic.Uint64
	closed    chan struct{}
	closeOnce sync.Once
}

func NewHub(cfg HubConfig) (*Hub, error) {
	if cfg.ChannelLabel == "" {
		cfg.ChannelLabel = DefaultChannelLabel
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.GatherTimeout <= 0 {
		cfg.GatherTimeout = DefaultGatherTimeout
	}
	if cfg.AnswerTimeout <= 0 {
		cfg.AnswerTimeout = DefaultAnswerTimeout
	}
	settingEngine := webrtc.SettingEngine{}
	settingEngine.SetIncludeLoopbackCandidate(cfg.IncludeLoopback)
	api := webrtc.NewAPI(webrtc.WithSettingEngine(settingEngine))

	// ICE server URLs are only checked when a peer connection is created
	validation, err := api.NewPeerConnection(webrtc.Configuration{ICEServers: cfg.ICEServers})
	if err != nil {
		return nil, fmt.Errorf("invalid WebRTC configuration: %w", err)
	}
	validation.Close()

	return &Hub{
		cfg:      cfg,
		api:      api,
		sessions: make(map[string]*Session),
		queue:    make(chan []byte, cfg.QueueSize),
		closed:   make(chan struct{}),
	}, nil
}

// Run delivers published messages until the context is done or the hub
// is closed
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.closed:
			return nil
		case msg := <-h.queue:
			h.broadcast(msg)
		}
	}
}

// Publish hands a message off for delivery without blocking. It returns
// false when the queue is full and the message is dropped.
func (h *Hub) Publish(msg []byte) bool {
	select {
	case h.queue <- msg:
		h.recordPublished(true)
		return true
	default:
		h.dropped.Add(1)
		h.recordPublished(false)
		log.Debug("Drop message. Hand-off queue is full")
		return false
	}
}

// Dropped returns the number of messages dropped by Publish
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Latest returns the last delivered message
func (h *Hub) Latest() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

func (h *Hub) broadcast(msg []byte) {
	h.mu.Lock()
	h.latest = msg
	targets := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		if s.open.Load() {
			targets = append(targets, s)
		}
	}
	h.mu.Unlock()

	for _, s := range targets {
		h.send(s, msg)
	}
}

func (h *Hub) send(s *Session, msg []byte) {
	var err error
	if h.cfg.Binary {
		err = s.dc.Send(msg)
	} else {
		err = s.dc.SendText(string(msg))
	}
	if err != nil {
		log.Debug("Error while sending to session %s: %s", s.ID, err)
	}
}

// CreateOffer creates a peer connection with a data channel and returns
// the offer once ICE gathering is complete
func (h *Hub) CreateOffer(ctx context.Context) (*Session, webrtc.SessionDescription, error) {
	select {
	case <-h.closed:
		return nil, webrtc.SessionDescription{}, ErrHubClosed{}
	default:
	}

	pc, err := h.api.NewPeerConnection(webrtc.Configuration{ICEServers: h.cfg.ICEServers})
	if err != nil {
		return nil, webrtc.SessionDescription{}, fmt.Errorf("creating peer connection: %w", err)
	}

	ordered := h.cfg.Ordered
	dc, err := pc.CreateDataChannel(h.cfg.ChannelLabel, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		pc.Close()
		return nil, webrtc.SessionDescription{}, fmt.Errorf("creating data channel %s: %w", h.cfg.ChannelLabel, err)
	}

	s := &Session{
		ID:      uuid.NewString(),
		Created: time.Now(),
		pc:      pc,
		dc:      dc,
	}

	dc.OnOpen(func() {
		log.Info("Data channel opened: session %s", s.ID)
		s.open.Store(true)
		if latest := h.Latest(); latest != nil {
			h.send(s, latest)
		}
	})
	dc.OnClose(func() {
		log.Debug("Data channel closed: session %s", s.ID)
		s.open.Store(false)
	})
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Debug("Session %s connection state: %s", s.ID, state)
		switch state {
		case webrtc.PeerConnectionStateFailed:
			h.remove(s)
			pc.Close()
		case webrtc.PeerConnectionStateClosed:
			h.remove(s)
		}
	})

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		pc.Close()
		return nil, webrtc.SessionDescription{}, fmt.Errorf("creating SDP offer: %w", err)
	}

	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err = pc.SetLocalDescription(offer); err != nil {
		pc.Close()
		return nil, webrtc.SessionDescription{}, fmt.Errorf("setting local description: %w", err)
	}

	// vanilla ICE: the offer carries all candidates
	select {
	case <-gatherComplete:
	case <-time.After(h.cfg.GatherTimeout):
		pc.Close()
		return nil, webrtc.SessionDescription{}, fmt.Errorf("ICE gathering timed out after %s", h.cfg.GatherTimeout)
	case <-ctx.Done():
		pc.Close()
		return nil, webrtc.SessionDescription{}, ctx.Err()
	}

	if err = h.register(s); err != nil {
		pc.Close()
		return nil, webrtc.SessionDescription{}, err
	}
	log.Info("Created session %s", s.ID)
	return s, *pc.LocalDescription(), nil
}

// register adds the session unless the hub is closed and drops it again
// if no answer arrives within AnswerTimeout
func (h *Hub) register(s *Session) error {
	h.mu.Lock()
	select {
	case <-h.closed:
		h.mu.Unlock()
		return ErrHubClosed{}
	default:
	}
	h.sessions[s.ID] = s
	h.newest = s
	count := len(h.sessions)
	h.mu.Unlock()
	h.setActiveSessions(count)

	time.AfterFunc(h.cfg.AnswerTimeout, func() {
		if s.pc.RemoteDescription() != nil {
			return
		}
		log.Info("No answer for session %s after %s", s.ID, h.cfg.AnswerTimeout)
		h.remove(s)
		s.pc.Close()
	})
	return nil
}

// Answer applies the remote answer to a session. An empty id refers to the
// most recently created session.
func (h *Hub) Answer(id, sdp string) error {
	h.mu.RLock()
	s := h.newest
	if id != "" {
		s = h.sessions[id]
	}
	h.mu.RUnlock()
	if s == nil {
		return ErrSessionNotFound{ID: id}
	}

	answer := webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  sdp,
	}
	if err := s.pc.SetRemoteDescription(answer); err != nil {
		return fmt.Errorf("setting remote description for session %s: %w", s.ID, err)
	}
	log.Info("Answer applied: session %s", s.ID)
	return nil
}

// Sessions returns the current sessions ordered by creation time
func (h *Hub) Sessions() []SessionInfo {
	h.mu.RLock()
	infos := make([]SessionInfo, 0, len(h.sessions))
	for _, s := range h.sessions {
		infos = append(infos, SessionInfo{
			ID:          s.ID,
			Created:     s.Created,
			State:       s.pc.ConnectionState().String(),
			ChannelOpen: s.open.Load(),
		})
	}
	h.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Created.Before(infos[j].Created)
	})
	return infos
}

func (h *Hub) remove(s *Session) {
	h.mu.Lock()
	if h.sessions[s.ID] != s {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, s.ID)
	if h.newest == s {
		h.newest = nil
	}
	count := len(h.sessions)
	h.mu.Unlock()
	h.setActiveSessions(count)
	log.Info("Removed session %s", s.ID)
}

// Close stops Run and closes all peer connections
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closeOnce.Do(func() {
		close(h.closed)
	})
	sessions := h.sessions
	h.sessions = make(map[string]*Session)
	h.newest = nil
	h.mu.Unlock()
	h.setActiveSessions(0)

	var firstErr error
	for _, s := range sessions {
		if err := s.pc.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *Hub) recordPublished(ok bool) {
	if h.cfg.Metrics != nil {
		h.cfg.Metrics.RecordPublished(ok)
	}
}

func (h *Hub) setActiveSessions(count int) {
	if h.cfg.Metrics != nil {
		h.cfg.Metrics.SetActiveSessions(count)
	}
}
