package queue

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFormatLine(t *testing.T) {
	ev := Event{Type: EventVideoPublished, AccountID: 3, VideoID: 9, Title: "Intro", OccurredAt: "2024-01-02T03:04:05Z"}
	got := FormatLine(ev)
	want := "[2024-01-02T03:04:05Z] video.published | account_id=3 | video_id=9 | title=\"Intro\"\n"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestHandleAppendsToLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "activity.log")
	c := &Consumer{LogPath: path}

	for _, ev := range []Event{
		NewEvent(EventAccountRegistered, 1),
		NewEvent(EventSessionTokenReuse, 1),
	} {
		body, _ := json.Marshal(ev)
		if err := c.Handle(body); err != nil {
			t.Fatalf("handle: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), data)
	}
	if !strings.Contains(lines[1], "session.token_reuse") {
		t.Fatalf("unexpected line %q", lines[1])
	}
}

func TestHandleRejectsBadPayload(t *testing.T) {
	c := &Consumer{LogPath: filepath.Join(t.TempDir(), "a.log")}
	if err := c.Handle([]byte("{")); err == nil {
		t.Fatal("expected unmarshal error")
	}
	if err := c.Handle([]byte(`{"account_id":1}`)); err == nil {
		t.Fatal("expected error for missing type")
	}
}

func TestDisabledPublisherIsNoop(t *testing.T) {
	p := NewPublisher("", nil)
	if p.Enabled() {
		t.Fatal("publisher without url should be disabled")
	}
	if err := p.Publish(context.Background(), NewEvent(EventVideoPublished, 1)); err != nil {
		t.Fatalf("disabled publish: %v", err)
	}
	var nilPub *Publisher
	if nilPub.Enabled() {
		t.Fatal("nil publisher should be disabled")
	}
}
