// Package versioncontrol drives the agent's component-lifecycle pipeline:
// manifest negotiation against the central server, download and checksum
// verification, unpack, self-upgrade splitting, recipe planning and
// execution, and resumption of any update deferred by a self-restart. It
// also answers component state and log queries used by the remote
// management command set.
package versioncontrol
