// Package queue carries asset mutation events from the cache-aside layer
// to the metering recompute workers over a pluggable broker.
package queue

// MessageQueue is the broker seam. Publish is fire-and-forget fan-out;
// Subscribe registers a handler that runs for every message on the
// subject. Ping reports whether the broker connection is currently up.
type MessageQueue interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler func(data []byte) error) error
	Ping() error
	Close() error
}
