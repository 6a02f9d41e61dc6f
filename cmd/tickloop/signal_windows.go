//go:build windows

package main

import (
	"context"
	"os"
	"os/signal"
)

// withShutdownSignals returns a context cancelled on interrupt. Windows has
// no SIGTERM delivery for console programs.
func withShutdownSignals(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt)
}
