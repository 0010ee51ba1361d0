// SPDX-License-Identifier:Apache-2.0

package vtysh

import (
	"context"

	"github.com/metallb/quagga-exporter/internal/vty"
)

// Cli runs a single daemon command and returns its output.
type Cli func(ctx context.Context, args string) (string, error)

// ForSocket returns a Cli talking to the daemon through its VTY socket.
func ForSocket(c *vty.Client) Cli {
	return c.Query
}
