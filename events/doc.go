// Copyright 2026 Fleetctl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

// Package events implements the typed event bus shared by the health
// checker and the lifecycle manager. It replaces the source system's
// ambient callback-list with a tagged union (Type) plus an explicit
// subscription registry; a panicking listener is isolated and logged,
// never allowed to break the emitting operation or block other listeners.
package events
