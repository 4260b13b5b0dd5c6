package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestNewParsesLevelAndFormat(t *testing.T) {
	l := New("chirp", "debug", "text")
	if l.GetLevel() != logrus.DebugLevel {
		t.Fatalf("level = %s, want debug", l.GetLevel())
	}
	if _, ok := l.Formatter.(*logrus.TextFormatter); !ok {
		t.Fatalf("expected text formatter, got %T", l.Formatter)
	}

	l = New("chirp", "bogus", "json")
	if l.GetLevel() != logrus.InfoLevel {
		t.Fatalf("unknown level should fall back to info, got %s", l.GetLevel())
	}
}

func TestWithContextAddsTraceAndUser(t *testing.T) {
	var buf bytes.Buffer
	l := New("chirp", "info", "json")
	l.SetOutput(&buf)

	ctx := WithUserID(WithTraceID(context.Background(), "trace-1"), "user_1")
	l.WithContext(ctx).Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["trace_id"] != "trace-1" || entry["user_id"] != "user_1" || entry["service"] != "chirp" {
		t.Fatalf("unexpected fields: %v", entry)
	}
}

func TestLogRequestLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New("chirp", "info", "json")
	l.SetOutput(&buf)

	l.LogRequest(context.Background(), http.MethodGet, "/api/posts", http.StatusTooManyRequests, 3*time.Millisecond)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["level"] != "warning" {
		t.Fatalf("level = %v, want warning", entry["level"])
	}
	if entry["status"].(float64) != http.StatusTooManyRequests {
		t.Fatalf("status = %v", entry["status"])
	}
}

func TestContextHelpersIgnoreEmpty(t *testing.T) {
	ctx := context.Background()
	if WithTraceID(ctx, "") != ctx || WithUserID(ctx, "") != ctx {
		t.Fatal("empty values should not allocate a new context")
	}
	if GetTraceID(ctx) != "" || GetUserID(ctx) != "" {
		t.Fatal("expected empty values from bare context")
	}
	if NewTraceID() == NewTraceID() {
		t.Fatal("trace IDs should be unique")
	}
}
