//go:build !js && !wasm
// +build !js,!wasm

package tonematch

import (
	"github.com/himanishpuri/ToneMatch/pkg/tonematch/storage"
)

// NewSQLiteStorage opens (creating if needed) a SQLite session store.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return db, nil
}
