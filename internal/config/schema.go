package config

// Config is the top-level YAML structure.
type Config struct {
	Version string      `yaml:"version"`
	Tracker TrackerConf `yaml:"tracker"`
	Page    PageConf    `yaml:"page"`
	Loop    LoopConf    `yaml:"loop"`
	Server  ServerConf  `yaml:"server"`
	Log     LogConf     `yaml:"log"`
}

// TrackerConf controls record output and hook registration.
type TrackerConf struct {
	Label string `yaml:"label"`
	Phase string `yaml:"phase"` // capture | bubble
	Sink  string `yaml:"sink"`  // console | log | both
}

// PageConf names the document the tracker is attached to.
type PageConf struct {
	URL  string `yaml:"url"`
	File string `yaml:"file"`
}

// LoopConf holds event loop settings.
type LoopConf struct {
	QueueDepth int `yaml:"queue_depth"`
}

// ServerConf holds HTTP listener settings.
type ServerConf struct {
	Addr string `yaml:"addr"`
}

// LogConf configures diagnostic logging.
type LogConf struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	SinkConsole = "console"
	SinkLog     = "log"
	SinkBoth    = "both"
)
