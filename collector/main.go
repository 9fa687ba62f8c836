package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"crashreporter/collector/api"
	"crashreporter/collector/cfg"

	log "github.com/sirupsen/logrus"
)

var Build string
var Version string

const (
	SIGHUP = syscall.SIGHUP
)

func init() {

	var cPath string
	var showVersion bool = false
	var showBuild bool = false

	flag.StringVar(&cPath, "config", "", "path to configuration file (json or yaml)")
	flag.BoolVar(&showVersion, "version", false, "show version")
	flag.BoolVar(&showBuild, "build", false, "show build")

	flag.Parse()

	if showVersion {
		fmt.Printf("Version: %s\n", Version)
		os.Exit(0)
	}

	if showBuild {
		fmt.Printf("Build: %s\n", Build)
		os.Exit(0)
	}

	if cPath != "" {
		conf, err := cfg.FromFile(cPath)
		if err != nil {
			log.WithError(err).Fatal("Error reading configuration file")
		}

		cfg.GlobalConfig = conf
		cfg.GlobalConfigPath = cPath

	} else {
		flag.PrintDefaults()
		log.Fatal("Config file is not set")
	}

	level, err := log.ParseLevel(cfg.GlobalConfig.LogLevel())
	if err == nil {
		log.WithField("level", level).
			Info("Change log level")
		log.SetLevel(level)
	} else {
		log.WithError(err).Warning("Can't setup log level")
	}
}

func HandleError(err error) {
	if err != nil {
		log.WithError(err).Fatal("Collector stopped")
	}
}

func main() {
	var service api.GinCollectorService
	HandleError(service.Init())
	defer service.Close()

	errs := make(chan error, 1)
	go func() {
		errs <- service.Start()
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case sig := <-signals:
			if sig != SIGHUP {
				log.WithField("signal", sig.String()).Info("Shutting down")
				return
			}
			handleSignal(sig)
		case err := <-errs:
			log.WithError(err).Error("Web server stopped")
			return
		}
	}
}

func handleSignal(sig os.Signal) {
	if sig != SIGHUP {
		return
	}
	cfg.GlobalConfigMutex.Lock()
	defer cfg.GlobalConfigMutex.Unlock()

	log.Info("Try to reload configuration")
	if len(cfg.GlobalConfigPath) != 0 {
		conf, err := cfg.FromFile(cfg.GlobalConfigPath)
		if err != nil {
			log.WithError(err).
				Error("Error reading configuration file")
			return
		}
		// Only the log level is applied live; listeners and brokers need a restart.
		noErrors := true

		if conf.LogLevel() != cfg.GlobalConfig.LogLevel() {
			err := changeLevel(conf.LogLevel())
			if err != nil {
				noErrors = false
			}
		}

		if noErrors {
			cfg.GlobalConfig = conf
			log.Info("Reloaded configuration")
		}
	}
}

func changeLevel(l string) error {
	level, err := log.ParseLevel(l)
	if err != nil {
		log.WithError(err).
			Warn("Can't parse level")
		return err
	}

	log.WithFields(log.Fields{
		"old level": cfg.GlobalConfig.LogLevel(),
		"new level": l,
	}).
		Info("Change log level")
	log.SetLevel(level)
	return nil
}
