// Copyright 2026 Fleetctl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

// Package health implements the long-running health checker: a per-agent
// ticker loop that probes an agent's HTTP health endpoint, classifies the
// result, keeps a bounded history, and pushes the outcome back into the
// discovery registry while fanning out events to subscribers.
package health
