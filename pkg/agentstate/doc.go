// Package agentstate holds the agent's shared process-wide memory
// (component J): the settings snapshot, the component-versions table, the
// current update manifest slot, and the monotonic restart flag observed by
// the main loop and the certificate watchdog.
package agentstate
