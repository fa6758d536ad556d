// Package mqtt is the broker connection underneath the MQTT surface.
// It wraps paho.mqtt.golang with the session plumbing the bridge needs:
// subscriptions replayed after every reconnect, panic recovery around
// message handlers, and retained online/offline announcements on the
// system status topic (the offline one doubles as the LWT, so crashed
// and stopped look different to subscribers).
//
// Topic layout is flat, built through the Topics helpers:
//
//	fanbridge/state/{serial}    retained fan state
//	fanbridge/command/{serial}  inbound commands
//	fanbridge/ack/{serial}      per-command results
//	fanbridge/system/status     bridge online/offline
//
// The mqttbridge package owns what flows over these topics; this package
// only moves bytes.
package mqtt
