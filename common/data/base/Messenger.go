package base

import "io"

// Handler receives a message published on channel.
type Handler func(channel, message string)

// Messenger is a publish/subscribe bus.
type Messenger interface {
	Connect(host string, port int) error
	Publish(channel, message string) error
	// Subscribe delivers messages of exactly this channel.
	Subscribe(channel string, h Handler) (io.Closer, error)
	// PSubscribe delivers messages of every channel matching a glob pattern.
	PSubscribe(pattern string, h Handler) (io.Closer, error)
	Close() error
}
