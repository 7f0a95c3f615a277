// Copyright 2026 Fleetctl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

// Package capability implements the capability registry: three inverted
// indices (capability id, category, tag) over the versioned capabilities
// agents advertise, with semver-ordered latest-version tracking and
// per-capability provider sets.
package capability
