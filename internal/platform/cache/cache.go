// Package cache stores short-lived upstream responses. The memory store keeps
// entries in-process; the redis store shares them between replicas.
package cache

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	ErrNilValue      = errors.New("value cannot be nil")
	ValidPrefixRegex = regexp.MustCompile("^[a-z0-9_:-]+$")
)

// Store is a byte-oriented TTL cache.
type Store interface {
	// Get returns the cached value and true, or nil and false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set adds or overwrites key. A zero ttl uses the store default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the given keys; missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}

func buildKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + ":" + key
}

func validatePrefix(prefix string) error {
	if prefix == "" {
		return nil
	}
	if !ValidPrefixRegex.MatchString(prefix) {
		return fmt.Errorf("prefix must match '%s' regex", ValidPrefixRegex)
	}
	if strings.HasSuffix(prefix, ":") {
		return fmt.Errorf("prefix %q must not end with ':'", prefix)
	}
	return nil
}
