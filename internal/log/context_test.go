package log

import (
	"context"
	"testing"
)

func TestContextWithRunID(t *testing.T) {
	tests := []struct {
		name  string
		ctx   context.Context
		runID string
		want  string
	}{
		{name: "nil context", ctx: nil, runID: "run-123", want: "run-123"},
		{name: "background context", ctx: context.Background(), runID: "run-456", want: "run-456"},
		{name: "empty run ID", ctx: context.Background(), runID: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ContextWithRunID(tt.ctx, tt.runID)
			if got := RunIDFromContext(ctx); got != tt.want {
				t.Errorf("RunIDFromContext() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunIDFromContextMissing(t *testing.T) {
	if got := RunIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty run ID, got %q", got)
	}
	if got := RunIDFromContext(nil); got != "" {
		t.Errorf("expected empty run ID for nil context, got %q", got)
	}
}
