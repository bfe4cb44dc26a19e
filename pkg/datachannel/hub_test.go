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
	"errors"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	// Empty ICE config means host candidates only (loopback).
	hub, err := NewHub(HubConfig{
		ChannelLabel:    "klv",
		Ordered:         true,
		IncludeLoopback: true,
	})
	if err != nil {
		t.Fatalf("NewHub: %v", err)
	}
	t.Cleanup(func() { hub.Close() })
	return hub
}

// connectClient plays the browser side: it takes the hub offer, answers it
// and returns the messages received on the data channel
func connectClient(t *testing.T, hub *Hub, useID bool) (<-chan string, *webrtc.PeerConnection) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	session, offer, err := hub.CreateOffer(ctx)
	if err != nil {
		t.Fatalf("CreateOffer: %v", err)
	}
	if offer.Type != webrtc.SDPTypeOffer {
		t.Fatalf("offer type = %s, want offer", offer.Type)
	}

	settingEngine := webrtc.SettingEngine{}
	settingEngine.SetIncludeLoopbackCandidate(true)
	api := webrtc.NewAPI(webrtc.WithSettingEngine(settingEngine))
	client, err := api.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		t.Fatalf("client NewPeerConnection: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	messages := make(chan string, 10)
	client.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != "klv" {
			t.Errorf("data channel label = %q, want klv", dc.Label())
		}
		dc.OnMessage(func(msg webrtc.DataChannelMessage) {
			messages <- string(msg.Data)
		})
	})

	if err = client.SetRemoteDescription(offer); err != nil {
		t.Fatalf("client SetRemoteDescription: %v", err)
	}
	answer, err := client.CreateAnswer(nil)
	if err != nil {
		t.Fatalf("client CreateAnswer: %v", err)
	}
	gatherComplete := webrtc.GatheringCompletePromise(client)
	if err = client.SetLocalDescription(answer); err != nil {
		t.Fatalf("client SetLocalDescription: %v", err)
	}
	<-gatherComplete

	id := ""
	if useID {
		id = session.ID
	}
	if err = hub.Answer(id, client.LocalDescription().SDP); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	return messages, client
}

func waitMessage(t *testing.T, messages <-chan string, expected string) {
	t.Helper()
	select {
	case msg := <-messages:
		if msg != expected {
			t.Errorf("message = %q, want %q", msg, expected)
		}
	case <-time.After(15 * time.Second):
		t.Fatalf("timed out waiting for %q", expected)
	}
}

func TestHubDeliversLatestAndLive(t *testing.T) {
	hub := newTestHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	if !hub.Publish([]byte(`{"1":"first"}`)) {
		t.Fatalf("Publish dropped the first message")
	}
	deadline := time.Now().Add(5 * time.Second)
	for hub.Latest() == nil {
		if time.Now().After(deadline) {
			t.Fatalf("first message was not delivered to the hub")
		}
		time.Sleep(10 * time.Millisecond)
	}

	messages, _ := connectClient(t, hub, true)
	waitMessage(t, messages, `{"1":"first"}`)

	deadline = time.Now().Add(5 * time.Second)
	for {
		sessions := hub.Sessions()
		if len(sessions) == 1 && sessions[0].ChannelOpen {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("session channel did not open: %+v", sessions)
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Publish([]byte(`{"1":"second"}`))
	waitMessage(t, messages, `{"1":"second"}`)
}

func TestHubAnswerLatestSession(t *testing.T) {
	hub := newTestHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	messages, _ := connectClient(t, hub, false)
	deadline := time.Now().Add(15 * time.Second)
	for {
		sessions := hub.Sessions()
		if len(sessions) == 1 && sessions[0].ChannelOpen {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("session channel did not open: %+v", sessions)
		}
		time.Sleep(10 * time.Millisecond)
	}
	hub.Publish([]byte("hello"))
	waitMessage(t, messages, "hello")
}

func TestHubSessionRemovedOnClose(t *testing.T) {
	hub := newTestHub(t)
	_, client := connectClient(t, hub, true)
	if len(hub.Sessions()) != 1 {
		t.Fatalf("Expected 1 session")
	}
	client.Close()
	if err := hub.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if len(hub.Sessions()) != 0 {
		t.Errorf("Expected no sessions after Close")
	}
	if _, _, err := hub.CreateOffer(context.Background()); !errors.As(err, &ErrHubClosed{}) {
		t.Errorf("Expected ErrHubClosed, got %v", err)
	}
}

func TestHubAnswerUnknownSession(t *testing.T) {
	hub := newTestHub(t)
	var notFound ErrSessionNotFound
	if err := hub.Answer("missing", "v=0"); !errors.As(err, &notFound) || notFound.ID != "missing" {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
	if err := hub.Answer("", "v=0"); !errors.As(err, &notFound) {
		t.Errorf("Expected ErrSessionNotFound for an empty id, got %v", err)
	}
}

func TestHubPublishDropsWhenFull(t *testing.T) {
	hub, err := NewHub(HubConfig{QueueSize: 2})
	if err != nil {
		t.Fatalf("NewHub: %v", err)
	}
	defer hub.Close()

	results := []bool{hub.Publish([]byte("a")), hub.Publish([]byte("b")), hub.Publish([]byte("c"))}
	expected := []bool{true, true, false}
	for i := range results {
		if results[i] != expected[i] {
			t.Errorf("Publish %d = %t, want %t", i, results[i], expected[i])
		}
	}
	if hub.Dropped() != 1 {
		t.Errorf("Dropped = %d, want 1", hub.Dropped())
	}
}

func TestHubRunStops(t *testing.T) {
	hub := newTestHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not stop")
	}
}

func TestHubDropsUnansweredSession(t *testing.T) {
	hub, err := NewHub(HubConfig{
		IncludeLoopback: true,
		AnswerTimeout:   200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewHub: %v", err)
	}
	defer hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	session, _, err := hub.CreateOffer(ctx)
	if err != nil {
		t.Fatalf("CreateOffer: %v", err)
	}
	if len(hub.Sessions()) != 1 {
		t.Fatalf("Expected one session after CreateOffer")
	}

	deadline := time.Now().Add(5 * time.Second)
	for len(hub.Sessions()) != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("Unanswered session %s was not removed", session.ID)
		}
		time.Sleep(20 * time.Millisecond)
	}
	var notFound ErrSessionNotFound
	if err = hub.Answer(session.ID, "v=0"); !errors.As(err, &notFound) {
		t.Errorf("Answer after timeout: got %v, want ErrSessionNotFound", err)
	}
}

func TestHubAnsweredSessionSurvivesAnswerTimeout(t *testing.T) {
	hub, err := NewHub(HubConfig{
		ChannelLabel:    "klv",
		IncludeLoopback: true,
		AnswerTimeout:   2 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewHub: %v", err)
	}
	defer hub.Close()

	connectClient(t, hub, true)
	time.Sleep(2500 * time.Millisecond)
	if len(hub.Sessions()) != 1 {
		t.Errorf("Answered session was removed")
	}
}

func TestHubRegisterAfterClose(t *testing.T) {
	hub := newTestHub(t)
	pc, err := hub.api.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		t.Fatalf("NewPeerConnection: %v", err)
	}
	defer pc.Close()

	hub.Close()
	err = hub.register(&Session{ID: "late", Created: time.Now(), pc: pc})
	var closed ErrHubClosed
	if !errors.As(err, &closed) {
		t.Fatalf("register after Close: got %v, want ErrHubClosed", err)
	}
	if len(hub.Sessions()) != 0 {
		t.Errorf("Session registered on a closed hub")
	}
}
