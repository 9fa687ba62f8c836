package cfg

type WebServerCfg struct {
	Port uint   `json:"port" yaml:"port"`
	Host string `json:"host" yaml:"host"`
}

type RabbitCfg struct {
	Server string `json:"server" yaml:"server"`
	Queue  string `json:"queue" yaml:"queue"`
}

type RedisCfg struct {
	Address       string `json:"address" yaml:"address"`
	Password      string `json:"password" yaml:"password"`
	ChannelPrefix string `json:"channel_prefix" yaml:"channel_prefix"`
}

type LogCfg struct {
	Level string `json:"level" yaml:"level"`
}

type MonitoringCfg struct {
	Enable bool   `json:"enable" yaml:"enable"`
	Path   string `json:"path" yaml:"path"`
}

type JsonConfig struct {
	Dumps      string         `json:"dumps_dir" yaml:"dumps_dir"`
	Key        string         `json:"api_key" yaml:"api_key"`
	Path       string         `json:"path" yaml:"path"`
	Server     *WebServerCfg  `json:"web_server" yaml:"web_server"`
	Rabbit     *RabbitCfg     `json:"rabbit_cfg" yaml:"rabbit_cfg"`
	Redis      *RedisCfg      `json:"redis" yaml:"redis"`
	Log        *LogCfg        `json:"log" yaml:"log"`
	Monitoring *MonitoringCfg `json:"monitoring" yaml:"monitoring"`
}

func (cfg *JsonConfig) Port() uint {
	if cfg.Server == nil || cfg.Server.Port == 0 {
		return DefaultPort
	}
	return cfg.Server.Port
}

func (cfg *JsonConfig) Host() string {
	if cfg.Server == nil {
		return ""
	}
	return cfg.Server.Host
}

func (cfg *JsonConfig) DumpsDir() string {
	return cfg.Dumps
}

func (cfg *JsonConfig) ApiKey() string {
	return cfg.Key
}

func (cfg *JsonConfig) CrashPath() string {
	if cfg.Path == "" {
		return DefaultCrashPath
	}
	return cfg.Path
}

func (cfg *JsonConfig) RabbitServer() string {
	if cfg.Rabbit == nil {
		return ""
	}
	return cfg.Rabbit.Server
}

func (cfg *JsonConfig) RabbitQueue() string {
	if cfg.Rabbit == nil {
		return ""
	}
	return cfg.Rabbit.Queue
}

func (cfg *JsonConfig) RedisAddress() string {
	if cfg.Redis == nil {
		return ""
	}
	return cfg.Redis.Address
}

func (cfg *JsonConfig) RedisPassword() string {
	if cfg.Redis == nil {
		return ""
	}
	return cfg.Redis.Password
}

func (cfg *JsonConfig) ChannelPrefix() string {
	if cfg.Redis == nil || cfg.Redis.ChannelPrefix == "" {
		return DefaultChannelPrefix
	}
	return cfg.Redis.ChannelPrefix
}

func (cfg *JsonConfig) LogLevel() string {
	if cfg.Log == nil || cfg.Log.Level == "" {
		return "info"
	}
	return cfg.Log.Level
}

func (cfg *JsonConfig) MonitoringEnable() bool {
	return cfg.Monitoring != nil && cfg.Monitoring.Enable
}

func (cfg *JsonConfig) MonitoringPath() string {
	if cfg.Monitoring == nil || cfg.Monitoring.Path == "" {
		return DefaultMonitoringPath
	}
	return cfg.Monitoring.Path
}
