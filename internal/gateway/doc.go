// Package gateway implements the realtime core of the tracking service: the
// connection registry, the delivery subscription index, the driver position
// cache, the location ingest pipeline, and the broadcast engine.
//
// All shared state is owned by a single [Gateway] value and guarded by one
// mutex; nothing outside this package mutates it except through the exported
// operations. Events are delivered to peers through buffered per-connection
// channels drained by a transport-level write pump, so a slow consumer loses
// events instead of stalling fan-out for every other connection.
package gateway
