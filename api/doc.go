// Copyright 2026 Fleetctl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

// Package api provides the wire types shared across every HTTP handler: the
// response envelope, error representation, and pagination parameters. The
// handlers themselves live in api/handlers and delegate immediately to the
// registration, discovery, capability, health, lifecycle, and scheduler
// packages.
package api
