package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"crashreporter/common/report"
	"crashreporter/reporter/cfg"
	"crashreporter/reporter/service"

	log "github.com/sirupsen/logrus"
)

var Build string
var Version string

var cPath string
var insecure bool = false

func init() {
	log.SetOutput(os.Stdout)

	var showVersion bool = false
	var showBuild bool = false

	flag.StringVar(&cPath, "config", "", "path to configuration file (json or yaml), default $"+cfg.EnvConfig)
	flag.BoolVar(&insecure, "insecure", false, "skip TLS certificate verification (development servers only)")
	flag.BoolVar(&showVersion, "version", false, "show version")
	flag.BoolVar(&showBuild, "build", false, "show build")
	flag.Usage = usage

	flag.Parse()

	if showVersion {
		fmt.Printf("Version: %s\n", Version)
		os.Exit(0)
	}

	if showBuild {
		fmt.Printf("Build: %s\n", Build)
		os.Exit(0)
	}
}

func usage() {
	fmt.Print(report.Usage(filepath.Base(os.Args[0])))
	fmt.Println("Options:")
	flag.PrintDefaults()
}

// configure loads .env, the configuration file and overrides. It runs only
// once the arguments are known to be valid.
func configure() {
	cfg.LoadEnv()
	conf, path, err := cfg.Load(cPath)
	if err != nil {
		log.WithError(err).Error("Error reading configuration file")
		os.Exit(1)
	}
	cfg.GlobalConfig = conf
	cfg.GlobalConfigPath = path
	if insecure {
		cfg.GlobalConfig.SetInsecureSkipVerify(true)
	}

	level, err := log.ParseLevel(cfg.GlobalConfig.LogLevel())
	if err == nil {
		log.SetLevel(level)
	} else {
		log.WithError(err).Warning("Can't setup log level")
	}
}

func main() {
	crash, err := report.FromArgs(flag.Args(), time.Now)
	if err != nil {
		usage()
		fmt.Printf("Error: %s\n", err.Error())
		os.Exit(1)
	}
	configure()

	log.WithFields(log.Fields{
		"server":         crash.ServerURL,
		"minidump":       crash.MinidumpPath,
		"version":        crash.ExeVersion,
		"pid":            crash.Pid,
		"exception_code": crash.Metadata().ExceptionCode,
	}).Info("Uploading crash report")

	uploader := service.NewUploader(cfg.GlobalConfig)
	res, err := uploader.Upload(context.Background(), crash)
	if err != nil {
		fmt.Printf("Upload failed in state %s: %s\n", res.Last, err.Error())
	} else {
		fmt.Printf("Upload finished: HTTP %d, %d bytes sent\n", res.StatusCode, res.Sent)
		if res.Body != "" {
			fmt.Printf("Server response: %s\n", res.Body)
		}
	}
	os.Exit(service.ExitCode(err))
}
