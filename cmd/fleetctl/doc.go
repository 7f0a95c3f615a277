// =============================================================================
// fleetctl entry point
// =============================================================================
// The control plane's server binary: registration, discovery, health
// checking, lifecycle management, and job scheduling for a fleet of
// network-reachable agents.
//
// Usage:
//
//	fleetctl serve                       # start the control plane
//	fleetctl serve --config config.yaml  # use an explicit config file
//	fleetctl version                     # print version information
//	fleetctl health                      # liveness probe against a running server
// =============================================================================
package main
