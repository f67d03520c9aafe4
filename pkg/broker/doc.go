// Package broker owns the agent's two independent MQTT 3.1.1 connections:
// the component bus (always TLS, talking to the local fleet broker) and the
// central bus (TLS optional, talking to the remote fleet controller). Each
// is a paho.mqtt.golang client configured for QoS 1, a 30 second keep-alive,
// clean sessions, and an unbounded 2500ms reconnect loop; inbound messages
// are handed to a Dispatcher and outbound envelopes are published by name.
package broker
