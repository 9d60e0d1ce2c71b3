// Package models defines domain entities shared across the wavecast client.
//
// The package contains two categories of types:
//
// 1. Wire shapes consumed from the platform's REST and channel contracts:
//   - [Comment] : One chat message, deduplicated by ID
//   - [Notification] : One inbox alert with monotonic read/hide flags
//   - [Category], [Streamer], [Subscription], [StreamSession]
//
// 2. Local cache entities persisted to SQLite:
//   - [WatchEntry] : One recorded viewing of a live session
//   - [Notification] doubles as a cache entity for the offline inbox
package models
