// Package store keeps the small amount of client state that outlives a
// command: the signed-in user, the bearer token and the theme preference.
package store

import (
	"context"
	"errors"
)

const (
	KeyCurrentUser = "currentUser"
	KeyAuthToken   = "authToken"
	KeyTheme       = "app-theme"
)

var ErrInvalidKey = errors.New("invalid store key")

// Store is a string key/value store. Get reports ok=false for absent keys;
// absence is never an error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
