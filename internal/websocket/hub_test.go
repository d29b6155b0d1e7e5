package websocket

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"github.com/makeasinger/fabricator/internal/model"
)

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg, ok := <-c.Send:
		if !ok {
			t.Fatal("client channel closed")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a message")
	}
	return nil
}

func TestBroadcastReachesChainSubscribers(t *testing.T) {
	h := NewHub(nil)
	go h.Run()
	defer h.Stop()

	chainID := uuid.New()
	subscriber := &Client{ChainID: chainID.String(), Send: make(chan []byte, 4)}
	other := &Client{ChainID: uuid.NewString(), Send: make(chan []byte, 4)}
	h.Register(subscriber)
	h.Register(other)

	event := model.SegmentEvent{
		Type:      model.SegmentEventDubbed,
		ChainID:   chainID,
		SegmentID: uuid.New(),
		Offset:    2,
		State:     model.SegmentStateDubbed,
	}
	h.BroadcastSegment(event)

	var got model.SegmentEvent
	if err := json.Unmarshal(receive(t, subscriber), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != event {
		t.Errorf("expected %+v, got %+v", event, got)
	}

	// a second event proves the other client got nothing from the first
	h.BroadcastSegment(model.SegmentEvent{Type: model.SegmentEventCrafted, ChainID: uuid.MustParse(other.ChainID)})
	if err := json.Unmarshal(receive(t, other), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != model.SegmentEventCrafted {
		t.Errorf("other chain received %+v", got)
	}
}

func TestUnregisterClosesClient(t *testing.T) {
	h := NewHub(nil)
	go h.Run()
	defer h.Stop()

	c := &Client{ChainID: "chain", Send: make(chan []byte, 1)}
	h.Register(c)
	h.Unregister(c)
	h.Unregister(c)

	select {
	case _, ok := <-c.Send:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel was not closed")
	}
}

type recordingWriter struct {
	mu     sync.Mutex
	frames []string
}

func (w *recordingWriter) WriteMessage(messageType int, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if messageType == websocket.CloseMessage {
		w.frames = append(w.frames, "close")
		return nil
	}
	w.frames = append(w.frames, string(data))
	return nil
}

func (w *recordingWriter) snapshot() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.frames...)
}

func TestPongAfterHubDropsClient(t *testing.T) {
	h := NewHub(nil)
	go h.Run()
	defer h.Stop()

	c := NewClient("chain", nil)
	w := &recordingWriter{}
	done := make(chan struct{})
	go func() {
		c.writePump(w, time.Hour)
		close(done)
	}()

	h.Register(c)
	c.Pong()
	deadline := time.Now().Add(2 * time.Second)
	for len(w.snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	h.Unregister(c)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("writer did not stop after the hub closed the client")
	}

	// the reader can still answer a ping after the hub closed Send
	c.Pong()
	c.Pong()

	frames := w.snapshot()
	if len(frames) != 2 || frames[0] != `{"type":"pong"}` || frames[1] != "close" {
		t.Errorf("unexpected frames %v", frames)
	}
}
