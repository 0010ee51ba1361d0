// SPDX-License-Identifier:Apache-2.0

package vty

import (
	"github.com/pkg/errors"
)

var (
	ErrConnect = errors.New("vty: connect failed")
	ErrSend    = errors.New("vty: send failed")
	ErrReceive = errors.New("vty: receive failed")
	ErrTimeout = errors.New("vty: timed out")
)
