package log

import (
	"context"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestWithComponent(t *testing.T) {
	l := New(ComponentApp, slog.LevelInfo)
	if l.Component() != ComponentApp {
		t.Fatalf("component = %q", l.Component())
	}
	child := l.WithComponent(ComponentIngest)
	if child.Component() != ComponentIngest {
		t.Errorf("child component = %q", child.Component())
	}
	if l.Component() != ComponentApp {
		t.Error("parent component mutated")
	}
}

func TestFromContextFallsBack(t *testing.T) {
	l := FromContext(context.Background())
	if l == nil || l.Component() != ComponentApp {
		t.Fatalf("fallback logger = %+v", l)
	}

	tagged := New(ComponentWorker, slog.LevelInfo)
	ctx := IntoContext(context.Background(), tagged)
	if got := FromContext(ctx); got.Component() != ComponentWorker {
		t.Errorf("context logger component = %q", got.Component())
	}
}
