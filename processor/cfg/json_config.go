package cfg

type RabbitCfg struct {
	Server   string `json:"server" yaml:"server"`
	Queue    string `json:"queue" yaml:"queue"`
	Exchange string `json:"post-exchange" yaml:"post-exchange"`
	Type     string `json:"post-type" yaml:"post-type"`
}

type LogCfg struct {
	Level string `json:"level" yaml:"level"`
}

type JsonConfig struct {
	Rabbit *RabbitCfg `json:"rabbit_cfg" yaml:"rabbit_cfg"`
	Log    *LogCfg    `json:"log" yaml:"log"`
	Skip   []string   `json:"skip_versions" yaml:"skip_versions"`
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

func (cfg *JsonConfig) RabbitPostExchange() string {
	if cfg.Rabbit == nil {
		return ""
	}
	return cfg.Rabbit.Exchange
}

func (cfg *JsonConfig) RabbitPostType() string {
	if cfg.Rabbit == nil || cfg.Rabbit.Type == "" {
		return "fanout"
	}
	return cfg.Rabbit.Type
}

func (cfg *JsonConfig) SkipVersions() []string {
	if cfg.Skip == nil {
		return []string{DeveloperVersion}
	}
	return cfg.Skip
}

func (cfg *JsonConfig) LogLevel() string {
	if cfg.Log == nil || cfg.Log.Level == "" {
		return "info"
	}
	return cfg.Log.Level
}
