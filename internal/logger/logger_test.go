package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew(t *testing.T) {
	log := New()
	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected logger to be enabled")
	}
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Msg("test message")

	if !strings.Contains(buf.String(), `"message":"test message"`) {
		t.Errorf("Expected JSON output with message, got: %s", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf))

	log := FromContext(ctx)
	log.Info().Msg("test")

	if buf.Len() == 0 {
		t.Error("Expected log output from retrieved logger")
	}
}

func TestFromContext_DefaultLogger(t *testing.T) {
	log := FromContext(context.Background())
	if log.GetLevel() == zerolog.Disabled {
		t.Error("Expected default logger to be enabled")
	}
}

func TestWithUser(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf))

	ctx, log := WithUser(ctx, "u1")
	log.Info().Msg("direct")
	fromCtx := FromContext(ctx)
	fromCtx.Warn().Msg("goal excluded")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %s", len(lines), buf.String())
	}
	for _, line := range lines {
		if !strings.Contains(line, `"user_id":"u1"`) {
			t.Errorf("expected user_id field, got: %s", line)
		}
	}
}

func TestNewWithLevel(t *testing.T) {
	log, err := NewWithLevel("warn", false)
	if err != nil {
		t.Fatalf("NewWithLevel failed: %v", err)
	}
	if log.GetLevel() != zerolog.WarnLevel {
		t.Errorf("level = %s, want warn", log.GetLevel())
	}

	log, err = NewWithLevel("", true)
	if err != nil {
		t.Fatalf("NewWithLevel failed: %v", err)
	}
	if log.GetLevel() != zerolog.InfoLevel {
		t.Errorf("level = %s, want info for empty input", log.GetLevel())
	}

	if _, err := NewWithLevel("loud", false); err == nil {
		t.Error("expected error for unknown level")
	}
}
