// Package storage implements the key-value persistence boundary for
// AirSafe Core.
//
// The sensor snapshot, alert history, alert settings, and event log are each
// serialised to a string and stored under a fixed key in a single SQLite
// table. Consumers depend on a two-method Get/Set interface they define
// locally; this package provides the SQLite-backed implementation.
//
// Persistence is best-effort by design: a failed write is logged by the
// caller and in-memory state remains authoritative. The worst case after a
// crash is a snapshot that lags reality by a few messages, which the next
// inbound message corrects.
//
// # Usage
//
//	store, err := storage.New(ctx, db.DB)
//	if err != nil {
//	    return err
//	}
//	if err := store.Set(ctx, storage.KeySensorData, payload); err != nil {
//	    log.Warn("persist failed", "error", err)
//	}
package storage
