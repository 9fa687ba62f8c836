package cfg

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-errors/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DeveloperVersion matches local builds, skipped unless skip_versions is set.
const DeveloperVersion = `^999\.999\.999$`

type Config interface {
	RabbitServer() string
	RabbitQueue() string
	RabbitPostExchange() string
	RabbitPostType() string
	// SkipVersions are expressions matched against exe_version.
	SkipVersions() []string
	LogLevel() string
}

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

	if len(jconf.RabbitServer()) == 0 || len(jconf.RabbitQueue()) == 0 {
		return nil, errors.New("rabbit_cfg server and queue can't be empty")
	}

	return &jconf, nil
}
