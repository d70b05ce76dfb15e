// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

// Package services adapts OnAir components to suture.Service: the HTTP
// server, the task queue router and badger value log GC. Scheduled jobs are
// already services (scheduler.Service).
package services
