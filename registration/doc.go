// Copyright 2026 Fleetctl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

// Package registration implements the stateless registration protocol:
// validating an inbound registration request, materializing it into a
// types.AgentRecord with sensible defaults, and generating
// collision-resistant agent/deployment/rollback ids.
package registration
