package cfg

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	DefaultUserAgent       = "CrashReporter/1.0"
	DefaultConnectTimeout  = 60 * time.Second
	DefaultResponseTimeout = 30 * time.Second
	DefaultContinueTimeout = time.Second

	EnvConfig   = "CRASH_REPORTER_CONFIG"
	EnvInsecure = "CRASH_REPORTER_INSECURE"
)

type Config interface {
	Boundary() string
	UserAgent() string
	// InsecureSkipVerify disables TLS certificate checks. Development servers only.
	InsecureSkipVerify() bool
	ConnectTimeout() time.Duration
	ResponseTimeout() time.Duration
	// ContinueTimeout is how long to wait for 100 Continue; zero disables it.
	ContinueTimeout() time.Duration
	LogLevel() string
	SetInsecureSkipVerify(bool)
}

var GlobalConfig Config = Default()
var GlobalConfigPath string

func Default() *JsonConfig {
	return &JsonConfig{}
}

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

	return &jconf, nil
}

// LoadEnv reads .env files into the environment. Variables already set win.
func LoadEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			log.WithFields(log.Fields{
				"file":  f,
				"error": err,
			}).Warning("Can't read env file")
		}
	}
}

// Load reads the configuration at pathTo, or at the path named by the
// environment when pathTo is empty, and applies environment overrides.
// Without any path the defaults are used.
func Load(pathTo string) (Config, string, error) {
	if pathTo == "" {
		pathTo = PathFromEnv()
	}

	var c Config = Default()
	if pathTo != "" {
		var err error
		c, err = FromFile(pathTo)
		if err != nil {
			return nil, pathTo, err
		}
	}
	ApplyEnv(c)
	return c, pathTo, nil
}

// PathFromEnv returns the configuration path set in the environment or .env file.
func PathFromEnv() string {
	return os.Getenv(EnvConfig)
}

// ApplyEnv applies environment overrides on top of c.
func ApplyEnv(c Config) {
	v, ok := os.LookupEnv(EnvInsecure)
	if !ok {
		return
	}
	insecure, err := strconv.ParseBool(v)
	if err != nil {
		log.WithField(EnvInsecure, v).Warning("Can't parse boolean, ignored")
		return
	}
	c.SetInsecureSkipVerify(insecure)
}
