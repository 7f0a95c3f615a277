// Copyright 2026 Fleetctl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

// Package types holds the data model shared by every control-plane
// component: agent records, capability descriptors, lifecycle state,
// deployment/rollback records, and jobs/tasks. Nothing in this package
// talks to the network or holds a mutex — it is pure data plus the
// structured error type returned across package boundaries.
package types
