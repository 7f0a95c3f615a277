// Copyright 2026 Fleetctl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

// Package discovery implements the authoritative agent registry: a map of
// agent id to agent record plus inverted indices on tag and namespace,
// backed by a capability.Registry for capability-driven lookups. The
// registry is unaware of the health checker that drives UpdateHealth —
// events flow one way, checker to registry.
package discovery
