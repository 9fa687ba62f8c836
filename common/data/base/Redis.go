package base

import (
	"io"
	"net"
	"strconv"
	"sync"

	"github.com/go-errors/errors"
	"github.com/go-redis/redis"
	log "github.com/sirupsen/logrus"
)

var ErrNotConnected = errors.New("redis: not connected")

type Redis struct {
	mu       sync.Mutex
	client   *redis.Client
	password string
}

func NewRedis(password string) *Redis {
	return &Redis{password: password}
}

// NewRedisAddr connects to a host:port address.
func NewRedisAddr(address, password string) (*Redis, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return nil, err
	}
	r := NewRedis(password)
	if err := r.Connect(host, p); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Redis) Connect(host string, port int) error {
	client := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		Password: r.password,
		DB:       0,
	})
	if err := client.Ping().Err(); err != nil {
		client.Close()
		log.WithFields(log.Fields{
			"host":  host,
			"port":  port,
			"error": err,
		}).Error("Can't connect to redis")
		return err
	}

	r.mu.Lock()
	old := r.client
	r.client = client
	r.mu.Unlock()
	if old != nil {
		old.Close()
	}
	return nil
}

func (r *Redis) Publish(channel, message string) error {
	client, err := r.get()
	if err != nil {
		return err
	}
	return client.Publish(channel, message).Err()
}

func (r *Redis) Subscribe(channel string, h Handler) (io.Closer, error) {
	client, err := r.get()
	if err != nil {
		return nil, err
	}
	return listen(client.Subscribe(channel), h)
}

func (r *Redis) PSubscribe(pattern string, h Handler) (io.Closer, error) {
	client, err := r.get()
	if err != nil {
		return nil, err
	}
	return listen(client.PSubscribe(pattern), h)
}

func (r *Redis) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	return err
}

func (r *Redis) get() (*redis.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		return nil, ErrNotConnected
	}
	return r.client, nil
}

// listen waits for the subscription to be confirmed and then dispatches
// messages to h on its own goroutine until the subscription is closed.
func listen(ps *redis.PubSub, h Handler) (io.Closer, error) {
	if _, err := ps.Receive(); err != nil {
		ps.Close()
		return nil, err
	}

	go func() {
		for msg := range ps.Channel() {
			h(msg.Channel, msg.Payload)
		}
	}()
	return ps, nil
}
