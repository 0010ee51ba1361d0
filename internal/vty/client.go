// SPDX-License-Identifier:Apache-2.0

// Package vty talks to a routing daemon over its local VTY socket.
//
// The daemon expects a command terminated by a NUL byte and answers with
// the command output, itself terminated by a NUL byte or by closing the
// connection.
package vty

import (
	"bytes"
	"context"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultSocket  = "/var/run/quagga/bgpd.vty"
	DefaultTimeout = 5 * time.Second

	readChunk = 1024
)

// Client queries the VTY socket at Path. A new connection is opened for
// every query.
type Client struct {
	Path        string
	DialTimeout time.Duration
	ReadTimeout time.Duration
}

func NewClient(path string, dialTimeout, readTimeout time.Duration) *Client {
	return &Client{Path: path, DialTimeout: dialTimeout, ReadTimeout: readTimeout}
}

// Query sends command and returns the daemon reply with the NUL
// terminators removed.
func (c *Client) Query(ctx context.Context, command string) (string, error) {
	if command == "" || strings.IndexByte(command, 0) >= 0 {
		return "", errors.WithMessagef(ErrSend, "invalid command %q", command)
	}

	d := net.Dialer{Timeout: c.DialTimeout}
	conn, err := d.DialContext(ctx, "unix", c.Path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", contextError(ctxErr, "dial %s", c.Path)
		}
		if isTimeout(err) {
			return "", errors.WithMessagef(ErrTimeout, "dial %s: %v", c.Path, err)
		}
		return "", errors.WithMessagef(ErrConnect, "dial %s: %v", c.Path, err)
	}
	defer conn.Close()

	if c.ReadTimeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(c.ReadTimeout)); err != nil {
			return "", errors.WithMessagef(ErrConnect, "set deadline on %s: %v", c.Path, err)
		}
	}

	// Unblock pending I/O as soon as the caller gives up.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.SetDeadline(time.Now())
		case <-done:
		}
	}()

	if _, err := conn.Write([]byte(command + "\x00")); err != nil {
		return "", c.ioError(ctx, ErrSend, "send", err)
	}

	var res bytes.Buffer
	buf := make([]byte, readChunk)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			res.Write(bytes.TrimRight(chunk, "\x00"))
			if chunk[n-1] == 0 {
				break
			}
		}
		if errors.Is(err, io.EOF) || (n == 0 && err == nil) {
			break
		}
		if err != nil {
			return "", c.ioError(ctx, ErrReceive, "receive", err)
		}
	}
	return res.String(), nil
}

func (c *Client) ioError(ctx context.Context, kind error, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return contextError(ctxErr, "%s on %s", op, c.Path)
	}
	if isTimeout(err) {
		return errors.WithMessagef(ErrTimeout, "%s on %s: %v", op, c.Path, err)
	}
	return errors.WithMessagef(kind, "%s on %s: %v", op, c.Path, err)
}

// contextError maps an expired context deadline to ErrTimeout and keeps
// cancellation as is.
func contextError(ctxErr error, format string, args ...interface{}) error {
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return errors.WithMessagef(ErrTimeout, format, args...)
	}
	return errors.WithMessagef(ctxErr, format, args...)
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
