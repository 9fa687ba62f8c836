package cfg

import "time"

type TransportCfg struct {
	Boundary           string `json:"boundary" yaml:"boundary"`
	UserAgent          string `json:"user_agent" yaml:"user_agent"`
	InsecureSkipVerify bool   `json:"insecure_skip_verify" yaml:"insecure_skip_verify"`
	ConnectTimeout     int    `json:"connect_timeout_ms" yaml:"connect_timeout_ms"`
	ResponseTimeout    int    `json:"response_timeout_ms" yaml:"response_timeout_ms"`
	// ContinueTimeout below zero sends the body without waiting for 100 Continue.
	ContinueTimeout    int    `json:"continue_timeout_ms" yaml:"continue_timeout_ms"`
}

type LogCfg struct {
	Level string `json:"level" yaml:"level"`
}

type JsonConfig struct {
	Transport *TransportCfg `json:"transport" yaml:"transport"`
	Log       *LogCfg       `json:"log" yaml:"log"`
}

func (cfg *JsonConfig) Boundary() string {
	if cfg.Transport == nil {
		return ""
	}
	return cfg.Transport.Boundary
}

func (cfg *JsonConfig) UserAgent() string {
	if cfg.Transport == nil || cfg.Transport.UserAgent == "" {
		return DefaultUserAgent
	}
	return cfg.Transport.UserAgent
}

func (cfg *JsonConfig) InsecureSkipVerify() bool {
	return cfg.Transport != nil && cfg.Transport.InsecureSkipVerify
}

func (cfg *JsonConfig) ConnectTimeout() time.Duration {
	if cfg.Transport == nil || cfg.Transport.ConnectTimeout <= 0 {
		return DefaultConnectTimeout
	}
	return time.Duration(cfg.Transport.ConnectTimeout) * time.Millisecond
}

func (cfg *JsonConfig) ResponseTimeout() time.Duration {
	if cfg.Transport == nil || cfg.Transport.ResponseTimeout <= 0 {
		return DefaultResponseTimeout
	}
	return time.Duration(cfg.Transport.ResponseTimeout) * time.Millisecond
}

func (cfg *JsonConfig) ContinueTimeout() time.Duration {
	if cfg.Transport == nil || cfg.Transport.ContinueTimeout == 0 {
		return DefaultContinueTimeout
	}
	if cfg.Transport.ContinueTimeout < 0 {
		return 0
	}
	return time.Duration(cfg.Transport.ContinueTimeout) * time.Millisecond
}

func (cfg *JsonConfig) LogLevel() string {
	if cfg.Log == nil || cfg.Log.Level == "" {
		return "info"
	}
	return cfg.Log.Level
}

// SetInsecureSkipVerify is used by the -insecure flag and the environment override.
func (cfg *JsonConfig) SetInsecureSkipVerify(v bool) {
	if cfg.Transport == nil {
		cfg.Transport = &TransportCfg{}
	}
	cfg.Transport.InsecureSkipVerify = v
}
