//go:build !windows

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// withShutdownSignals returns a context cancelled on SIGINT or SIGTERM.
func withShutdownSignals(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
