// Copyright 2026 Fleetctl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

// Package lifecycle implements the per-agent deployment state machine:
// initialize, deploy, scale, update, rollback, stop, and deregister, each
// guarded by a fixed transition table and serialized per agent so
// concurrent operations on the same agent never race.
package lifecycle
