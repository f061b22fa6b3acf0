//go:build unix

package main

import (
	"context"
	"io"
	"log/slog"
	"syscall"
	"testing"
	"time"
)

func TestShutdownOnSignal(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	ctx, cancel := shutdownOnSignal(context.Background(), logger, syscall.SIGUSR1)
	defer cancel()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatal(err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not cancelled by signal")
	}
}

func TestShutdownOnSignal_CancelReleasesHandler(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	ctx, cancel := shutdownOnSignal(context.Background(), logger, syscall.SIGUSR2)
	cancel()

	if ctx.Err() == nil {
		t.Error("context should be cancelled")
	}
}
