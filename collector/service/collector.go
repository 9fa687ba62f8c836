package service

import (
	"encoding/json"

	"crashreporter/collector/cfg"
	"crashreporter/common/data/base"
	"crashreporter/common/task"

	"github.com/go-errors/errors"
	logger "github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

type RabbitClient struct {
	connection *amqp.Connection
	channel    *amqp.Channel
	queue      amqp.Queue
}

// Publisher is the part of base.Messenger the collector needs.
type Publisher interface {
	Publish(channel, message string) error
}

type CollectorService struct {
	cfg    cfg.Config
	rabbit *RabbitClient
	bus    Publisher
}

// AddCrash announces a stored crash on every configured channel.
func (s *CollectorService) AddCrash(t *task.Crash) error {
	msg, err := json.Marshal(t)
	if err != nil {
		logger.WithError(err).Error("Can't serialize message")
		return err
	}

	if s.rabbit != nil {
		if err := s.publish(msg); err != nil {
			logger.WithError(err).Error("Can't publish crash task to rabbit")
			return err
		}
	}

	if s.bus != nil {
		channel := s.Channel(t)
		if err := s.bus.Publish(channel, string(msg)); err != nil {
			logger.WithFields(logger.Fields{
				"channel": channel,
				"error":   err,
			}).Error("Can't publish crash notification")
			return err
		}
	}
	return nil
}

// Channel is the notification channel of a crash: prefix plus exe version.
func (s *CollectorService) Channel(t *task.Crash) string {
	version := "unknown"
	if t.Info != nil && t.Info.ExeVersion != "" {
		version = t.Info.ExeVersion
	}
	return s.cfg.ChannelPrefix() + version
}

func (s *CollectorService) Close() {
	if s.rabbit != nil {
		s.rabbit.channel.Close()
		s.rabbit.connection.Close()
	}
	if c, ok := s.bus.(base.Messenger); ok {
		c.Close()
	}
}

func (s *CollectorService) publish(msg []byte) error {
	return s.rabbit.channel.Publish("",
		s.rabbit.queue.Name,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         msg,
		})
}

func newRabbitClient(conf cfg.Config) (*RabbitClient, error) {
	conn, err := amqp.Dial(conf.RabbitServer())
	if err != nil {
		logger.WithError(err).Error("Failed to connect to RabbitMQ")
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		logger.WithError(err).Error("Failed to open a channel")
		conn.Close()
		return nil, err
	}

	q, err := ch.QueueDeclare(
		conf.RabbitQueue(),
		true,
		false,
		false,
		false,
		nil,
	)

	if err != nil {
		logger.WithError(err).Error("Failed to declare a queue")
		conn.Close()
		return nil, err
	}

	return &RabbitClient{conn, ch, q}, nil
}

// NewCollector connects to the brokers enabled in c. Both are optional.
func NewCollector(c cfg.Config) (*CollectorService, error) {
	s := &CollectorService{cfg: c}

	if c.RabbitServer() != "" {
		client, err := newRabbitClient(c)
		if err != nil {
			return nil, errors.WrapPrefix(err, "Can't connect to rabbit", 0)
		}
		s.rabbit = client
	}

	if c.RedisAddress() != "" {
		bus, err := base.NewRedisAddr(c.RedisAddress(), c.RedisPassword())
		if err != nil {
			s.Close()
			return nil, errors.WrapPrefix(err, "Can't connect to redis", 0)
		}
		s.bus = bus
	}

	return s, nil
}

// NewCollectorWith uses bus for notifications and no task queue.
func NewCollectorWith(c cfg.Config, bus Publisher) *CollectorService {
	return &CollectorService{cfg: c, bus: bus}
}
