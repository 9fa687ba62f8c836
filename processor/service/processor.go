package service

import (
	"context"
	"encoding/json"
	"os"

	"crashreporter/common/format/minidump"
	"crashreporter/common/task"
	"crashreporter/processor/cfg"

	"github.com/go-errors/errors"
	log "github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

var (
	ErrInvalidTask = errors.New("Invalid task")
	ErrTasksClosed = errors.New("Task channel closed")
)

type RabbitClient struct {
	connection  *amqp.Connection
	taskChannel *amqp.Channel
	taskQueue   amqp.Queue
	messages    <-chan amqp.Delivery
	postChannel *amqp.Channel
}

type ProcessorService struct {
	CrashProcessor
	config cfg.Config
	rabbit *RabbitClient
}

func newRabbitClient(conf cfg.Config) (*RabbitClient, error) {
	conn, err := amqp.Dial(conf.RabbitServer())
	if err != nil {
		return nil, errors.WrapPrefix(err, "Failed to connect to RabbitMQ", 0)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errors.WrapPrefix(err, "Failed to open a taskChannel", 0)
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
		conn.Close()
		return nil, errors.WrapPrefix(err, "Failed to declare a taskQueue", 0)
	}

	err = ch.Qos(
		1,
		0,
		false,
	)
	if err != nil {
		conn.Close()
		return nil, errors.WrapPrefix(err, "Failed to set QoS", 0)
	}

	msgs, err := ch.Consume(
		q.Name, // taskQueue
		"",     // consumer
		false,  // auto-ack
		false,  // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		conn.Close()
		return nil, errors.WrapPrefix(err, "Failed to register a consumer", 0)
	}

	return &RabbitClient{connection: conn,
		taskChannel: ch,
		taskQueue:   q,
		messages:    msgs,
	}, nil
}

func (p *ProcessorService) Init(config cfg.Config) error {
	p.config = config

	rabbit, err := newRabbitClient(p.config)
	if err != nil {
		log.WithError(err).Error("Can't connect to rabbit")
		return err
	}
	p.rabbit = rabbit

	if err := p.createPostProcessingExchange(); err != nil {
		rabbit.connection.Close()
		return err
	}

	p.initCrashProcessor(p.config)
	return nil
}

// Loop consumes crash tasks until ctx is done or the broker closes the
// channel. Every value received on reload rereads the configuration file.
func (p *ProcessorService) Loop(ctx context.Context, reload <-chan os.Signal) error {
	for {
		select {
		case msg, ok := <-p.rabbit.messages:
			if !ok {
				return ErrTasksClosed
			}
			if err := p.handleTask(msg.Body); err == nil {
				msg.Ack(false)
			} else {
				// a message that can't be parsed never will be
				msg.Nack(false, false)
			}
		case sig := <-reload:
			log.WithField("signal", sig.String()).
				Info("Catch")
			p.reloadConfiguration()
		case <-ctx.Done():
			return nil
		}
	}
}

func (p *ProcessorService) Close() error {
	if p.rabbit == nil || p.rabbit.connection == nil {
		return nil
	}
	return p.rabbit.connection.Close()
}

func (p *ProcessorService) handleTask(message []byte) error {
	t := task.FromJson(message)
	crash, ok := t.(*task.Crash)
	if !ok {
		log.WithField("message", string(message)).Warning("Invalid task")
		return ErrInvalidTask
	}

	r, err := p.handleCrash(crash)
	if err != nil {
		log.WithFields(log.Fields{
			"id":    crash.Id,
			"error": err,
		}).Error("Can't process crash")
		return nil
	}
	if !r.Skipped {
		p.sendNext(r)
	}
	return nil
}

func (p *ProcessorService) createPostProcessingExchange() error {
	if len(p.config.RabbitPostExchange()) == 0 {
		p.rabbit.postChannel = nil
		return nil
	}

	ch, err := p.rabbit.connection.Channel()
	if err != nil {
		return errors.WrapPrefix(err, "Failed to open a postChannel", 0)
	}
	err = ch.ExchangeDeclare(
		p.config.RabbitPostExchange(),
		p.config.RabbitPostType(),
		true,
		true,
		false,
		false,
		nil,
	)
	if err != nil {
		return errors.WrapPrefix(err, "Failed to declare an exchange", 0)
	}
	p.rabbit.postChannel = ch
	return nil
}

func (p *ProcessorService) sendNext(report *minidump.Report) {
	if p.rabbit == nil || p.rabbit.postChannel == nil {
		return
	}

	data, err := json.Marshal(report)
	if err != nil {
		log.WithError(err).
			Error("Can't serialize report")
		return
	}

	err = p.rabbit.postChannel.Publish(
		p.config.RabbitPostExchange(),
		"",
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        data,
		})
	if err != nil {
		log.WithError(err).
			Error("Can't send crash to next stage")
	}
}

func (p *ProcessorService) reloadConfiguration() {
	log.Info("Try to reload configuration")
	if len(cfg.GlobalConfigPath) != 0 {
		conf, err := cfg.FromFile(cfg.GlobalConfigPath)
		if err != nil {
			log.WithError(err).
				Error("Error reading configuration file")
			return
		}
		noErrors := true

		if conf.LogLevel() != p.config.LogLevel() {
			err := p.changeLevel(conf.LogLevel())
			if err != nil {
				noErrors = false
			}
		}

		p.initCrashProcessor(conf)

		if noErrors {
			cfg.GlobalConfig = conf
			p.config = conf
			log.Info("Reloaded configuration")
		}
	}
}

func (p *ProcessorService) changeLevel(l string) error {
	level, err := log.ParseLevel(l)
	if err != nil {
		log.WithError(err).
			Warn("Can't parse level")
		return err
	}

	log.WithFields(log.Fields{
		"old level": p.config.LogLevel(),
		"new level": l,
	}).
		Info("Change log level")
	log.SetLevel(level)
	return nil
}
