// Copyright 2026 Fleetctl Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package config loads the control plane's configuration: the server's
listen ports and timeouts, the tunables for the health checker, the
lifecycle manager, and the scheduler, and the logging and telemetry
settings.

Config merges three layers in order: built-in defaults, an optional YAML
file, then environment variables prefixed FLEETCTL_. Use Loader to
customize the file path, env prefix, or add a validator:

	cfg, err := config.NewLoader().
		WithConfigPath("config.yaml").
		WithEnvPrefix("FLEETCTL").
		Load()
*/
package config
