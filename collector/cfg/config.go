package cfg

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-errors/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort           = 8080
	DefaultCrashPath      = "/api/crash"
	DefaultChannelPrefix  = "crash:"
	DefaultMonitoringPath = "/metrics"
)

type Config interface {
	Port() uint
	Host() string
	DumpsDir() string
	// ApiKey is compared with the X-API-Key header when not empty.
	ApiKey() string
	CrashPath() string
	RabbitServer() string
	RabbitQueue() string
	RedisAddress() string
	RedisPassword() string
	ChannelPrefix() string
	LogLevel() string

	// monitoring
	MonitoringEnable() bool
	MonitoringPath() string
}

var GlobalConfigMutex sync.Mutex
var GlobalConfig Config
var GlobalConfigPath string

// FromFile reads a JSON configuration, or YAML when the file ends in .yml/.yaml.
func FromFile(pathTo string) (Config, error) {
	data, err := os.ReadFile(pathTo)
	if err != nil {
		log.WithError(err).Error("Get config failed")
		return nil, err
	}

	var jconf JsonConfig
	switch strings.ToLower(filepath.Ext(pathTo)) {
	case ".yml", ".yaml":
		err = yaml.Unmarshal(data, &jconf)
	default:
		err = json.Unmarshal(data, &jconf)
	}
	if err != nil {
		log.WithError(err).Error("Error at cfg parsing")
		return nil, err
	}

	if len(jconf.Dumps) == 0 {
		return nil, errors.New("The path to the dumps directory is not set")
	}

	if !strings.HasPrefix(jconf.CrashPath(), "/") {
		return nil, errors.Errorf("Crash path %q must start with '/'", jconf.Path)
	}

	return &jconf, nil
}
