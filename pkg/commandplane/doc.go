// Package commandplane dispatches decoded MQTT envelopes to their handling
// logic: component-bus tags drive manifest negotiation, install, and
// component state/log queries; central-bus tags drive remote SSH-key
// bootstrap. It implements broker.Dispatcher (inbound) and
// versioncontrol.Publisher (outbound status/changelog text), and stays a
// thin layer over pkg/versioncontrol and pkg/remoteadmin.
package commandplane
