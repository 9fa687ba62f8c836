package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"crashreporter/common/data/base"
	"crashreporter/common/task"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const (
	REDIS    = `redis`
	PASSWORD = `password`
	PATTERN  = `pattern`
)

func WatchCommand() *cli.Command {
	return &cli.Command{
		Name:   "watch",
		Usage:  "print crash notifications as they arrive",
		Action: watch,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  REDIS,
				Value: "127.0.0.1:6379",
			},
			&cli.StringFlag{
				Name: PASSWORD,
			},
			&cli.StringFlag{
				Name:  PATTERN,
				Value: "crash:*",
			},
		},
	}
}

func watch(c *cli.Context) error {
	bus, err := base.NewRedisAddr(c.String(REDIS), c.String(PASSWORD))
	if err != nil {
		return err
	}
	defer bus.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"redis":   c.String(REDIS),
		"pattern": c.String(PATTERN),
	}).Info("Watching crashes")
	return follow(ctx, bus, c.String(PATTERN), os.Stdout)
}

// follow prints every crash published on channels matching pattern until
// ctx is done.
func follow(ctx context.Context, bus base.Messenger, pattern string, out io.Writer) error {
	sub, err := bus.PSubscribe(pattern, func(channel, message string) {
		printCrash(out, channel, message)
	})
	if err != nil {
		return err
	}
	defer sub.Close()

	<-ctx.Done()
	return nil
}

func printCrash(out io.Writer, channel, message string) {
	crash, ok := task.FromJson([]byte(message)).(*task.Crash)
	if !ok {
		fmt.Fprintf(out, "%s: %s\n", channel, message)
		return
	}

	code := "?"
	if crash.Info != nil {
		code = crash.Info.ExceptionCode
	}
	fmt.Fprintf(out, "%s %s: crash %s exception %s, %d bytes at %s\n",
		crash.Time, channel, crash.Id, code, crash.Size, crash.Minidump)
}
