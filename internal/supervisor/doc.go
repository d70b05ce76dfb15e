// OnAir - Radio Playlist Event Dispatch and Play Count Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/onair

/*
Package supervisor runs the OnAir services under a suture v4 tree.

The tree has three layers so one can restart without taking down the others:

	RootSupervisor ("onair")
	├── DataSupervisor ("data-layer")
	│   ├── StoreGCService
	│   ├── job-expire-play-counts
	│   └── job-play-count-snapshot
	├── MessagingSupervisor ("messaging-layer")
	│   └── TaskQueueService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Supervisor events are logged through sutureslog onto the zerolog-backed
slog.Logger from the logging package.
*/
package supervisor
