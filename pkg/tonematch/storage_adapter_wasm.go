//go:build js || wasm
// +build js wasm

package tonematch

import "errors"

// NewSQLiteStorage is unavailable in browser builds; pass WithStorage instead.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	return nil, errors.New("sqlite storage is not supported on js/wasm")
}
