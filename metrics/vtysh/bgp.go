// SPDX-License-Identifier:Apache-2.0

package vtysh

import (
	"context"
	"fmt"

	"github.com/metallb/quagga-exporter/internal/bgp"
)

func SummaryCommand(family string) string {
	return fmt.Sprintf("show bgp %s summary json", family)
}

// GetBGPSummary fetches and parses the peer summary of the given address
// family. The family is passed to the daemon as is.
func GetBGPSummary(ctx context.Context, frrCli Cli, family string) (*bgp.Summary, error) {
	res, err := frrCli(ctx, SummaryCommand(family))
	if err != nil {
		return nil, err
	}
	return bgp.ParseSummary(res)
}
