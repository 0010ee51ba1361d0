// SPDX-License-Identifier:Apache-2.0

// Package config holds the settings of the monitored daemon instances.
// A configuration is built once at startup and never mutated afterwards.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/metallb/quagga-exporter/internal/vty"
)

var ErrConfig = errors.New("invalid configuration")

const (
	KeySocket         = "socket"
	KeyFamily         = "family"
	KeyUseHostname    = "usehostname"
	KeyConnectTimeout = "connecttimeout"
	KeyReadTimeout    = "readtimeout"

	DefaultFamily = "ipv4 unicast"
)

var knownKeys = sets.New[string](KeySocket, KeyFamily, KeyUseHostname, KeyConnectTimeout, KeyReadTimeout)

// Instance is the configuration of one monitored daemon and address family.
type Instance struct {
	Socket         string
	Family         string
	UseHostname    bool
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// Default returns the configuration used for keys that are not set.
func Default() Instance {
	return Instance{
		Socket:         vty.DefaultSocket,
		Family:         DefaultFamily,
		UseHostname:    true,
		ConnectTimeout: vty.DefaultTimeout,
		ReadTimeout:    vty.DefaultTimeout,
	}
}

// Timeout is the overall time budget of one poll.
func (i Instance) Timeout() time.Duration {
	return i.ConnectTimeout + i.ReadTimeout
}

// Parse builds an Instance from key/values pairs as handed over by a host
// configuration block. Keys are matched case-insensitively, every key takes
// exactly one value. Values are either strings or, for usehostname, bools.
func Parse(kv map[string][]interface{}) (Instance, error) {
	res := Default()
	seen := sets.New[string]()
	for rawKey, values := range kv {
		key := strings.ToLower(rawKey)
		if !knownKeys.Has(key) {
			return Instance{}, errors.WithMessagef(ErrConfig, "unknown keyword `%s`, expected one of %s", rawKey, strings.Join(sets.List(knownKeys), ", "))
		}
		if seen.Has(key) {
			return Instance{}, errors.WithMessagef(ErrConfig, "%s set more than once", key)
		}
		seen.Insert(key)
		if len(values) != 1 {
			return Instance{}, errors.WithMessagef(ErrConfig, "%s expects exactly one argument, got %d", key, len(values))
		}
		if err := res.set(key, values[0]); err != nil {
			return Instance{}, err
		}
	}
	return res, nil
}

func (i *Instance) set(key string, value interface{}) error {
	switch key {
	case KeyUseHostname:
		b, ok := value.(bool)
		if !ok {
			return errors.WithMessagef(ErrConfig, "%s expects a bool, got %v (%T)", key, value, value)
		}
		i.UseHostname = b
		return nil
	}

	s, ok := value.(string)
	if !ok {
		return errors.WithMessagef(ErrConfig, "%s expects a string, got %v (%T)", key, value, value)
	}
	switch key {
	case KeySocket:
		if s == "" {
			return errors.WithMessagef(ErrConfig, "%s must not be empty", key)
		}
		i.Socket = s
	case KeyFamily:
		if strings.TrimSpace(s) == "" {
			return errors.WithMessagef(ErrConfig, "%s must not be empty", key)
		}
		i.Family = s
	case KeyConnectTimeout, KeyReadTimeout:
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return errors.WithMessagef(ErrConfig, "%s expects a positive duration, got %q", key, s)
		}
		if key == KeyConnectTimeout {
			i.ConnectTimeout = d
		} else {
			i.ReadTimeout = d
		}
	}
	return nil
}

func (i Instance) String() string {
	return fmt.Sprintf("{socket: %s, family: %s, usehostname: %t, connecttimeout: %s, readtimeout: %s}",
		i.Socket, i.Family, i.UseHostname, i.ConnectTimeout, i.ReadTimeout)
}
