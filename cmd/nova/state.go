package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/nova-bank/internal/storage"
	"github.com/dvloznov/nova-bank/internal/storage/gcs"
	"github.com/dvloznov/nova-bank/internal/storage/inmemory"
	"github.com/dvloznov/nova-bank/internal/storage/sqlite"
)

type stateBackend string

const (
	backendSQLite stateBackend = "sqlite"
	backendGCS    stateBackend = "gcs"
	backendMemory stateBackend = "memory"
)

// parseStateValue splits "backend:target", e.g. "sqlite:nova.db",
// "gcs:bucket/prefix" or "memory:".
func parseStateValue(value string) (stateBackend, string, error) {
	scheme, target, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok {
		return "", "", fmt.Errorf("invalid state %q: expected backend:target", value)
	}

	switch backend := stateBackend(strings.ToLower(scheme)); backend {
	case backendSQLite, backendGCS:
		if target == "" {
			return "", "", fmt.Errorf("invalid state %q: %s needs a target", value, backend)
		}
		return backend, target, nil
	case backendMemory:
		return backend, target, nil
	default:
		return "", "", fmt.Errorf("invalid state %q: unknown backend %q", value, scheme)
	}
}

// openState opens the key-value store named by value. The returned close
// function is never nil.
func openState(ctx context.Context, value string) (storage.KeyValueStore, func() error, error) {
	backend, target, err := parseStateValue(value)
	if err != nil {
		return nil, nil, err
	}

	switch backend {
	case backendSQLite:
		s, err := sqlite.Open(ctx, target)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case backendGCS:
		loc, err := gcs.ParseLocation(target)
		if err != nil {
			return nil, nil, err
		}
		s, err := gcs.NewStore(ctx, loc)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return inmemory.NewStore(), func() error { return nil }, nil
	}
}
