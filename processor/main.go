package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"crashreporter/processor/cfg"
	"crashreporter/processor/service"

	"github.com/go-errors/errors"
	log "github.com/sirupsen/logrus"
)

var Build string
var Version string

var errNoConfig = errors.New("Config file is not set")

type options struct {
	config      string
	showVersion bool
	showBuild   bool
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.config, "config", "", "path to configuration file (json or yaml)")
	flag.BoolVar(&o.showVersion, "version", false, "show version")
	flag.BoolVar(&o.showBuild, "build", false, "show build")
	flag.Parse()
	return o
}

func loadConfig(path string) error {
	if path == "" {
		return errNoConfig
	}
	conf, err := cfg.FromFile(path)
	if err != nil {
		return err
	}
	cfg.GlobalConfig = conf
	cfg.GlobalConfigPath = path

	if level, err := log.ParseLevel(conf.LogLevel()); err != nil {
		log.WithError(err).Warning("Can't setup log level")
	} else {
		log.SetLevel(level)
	}
	return nil
}

// run consumes tasks until ctx is cancelled. SIGHUP rereads the
// configuration between tasks.
func run(ctx context.Context) error {
	var processor service.ProcessorService
	if err := processor.Init(cfg.GlobalConfig); err != nil {
		return err
	}
	defer processor.Close()

	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	defer signal.Stop(reload)

	log.WithFields(log.Fields{
		"queue":    cfg.GlobalConfig.RabbitQueue(),
		"exchange": cfg.GlobalConfig.RabbitPostExchange(),
	}).Info("Waiting for crashes")
	return processor.Loop(ctx, reload)
}

func main() {
	opts := parseFlags()
	switch {
	case opts.showVersion:
		fmt.Printf("Version: %s\n", Version)
		return
	case opts.showBuild:
		fmt.Printf("Build: %s\n", Build)
		return
	}

	if err := loadConfig(opts.config); err != nil {
		if err == errNoConfig {
			flag.PrintDefaults()
		}
		log.WithError(err).Fatal("Error reading configuration file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		log.WithError(err).Error("Processor stopped")
		os.Exit(1)
	}
	log.Info("Processor stopped")
}
