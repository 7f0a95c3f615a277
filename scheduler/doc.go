// Copyright 2026 Fleetctl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

// Package scheduler decomposes submitted jobs into tasks, assigns each task
// to a healthy agent by round-robin rotation, and retries failed tasks up to
// a configured bound.
package scheduler
