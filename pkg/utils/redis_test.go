package utils

import (
	"context"
	"testing"
)

func TestReleaseScriptCompiles(t *testing.T) {
	// Compile-time smoke test: the script should be initialized.
	if executionReleaseScript == nil {
		t.Fatalf("expected script to be initialized")
	}
}

func TestAcquireExecutionLock_RejectsInvalidArgs(t *testing.T) {
	ctx := context.Background()
	if _, err := AcquireExecutionLock(ctx, nil, "k", "t", 1); err == nil {
		t.Fatalf("expected error for nil client")
	}
}
