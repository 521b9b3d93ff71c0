package config

// ProbeConfig contains remote freshness probe settings
type ProbeConfig struct {
	TimeoutMS     int     `yaml:"timeoutMS" validate:"gte=0"`
	RatePerSecond float64 `yaml:"ratePerSecond" validate:"gte=0"`
}

// UpdateConfig contains batch update settings
type UpdateConfig struct {
	Concurrency       int `yaml:"concurrency" validate:"gte=1,lte=32"`
	DownloadTimeoutMS int `yaml:"downloadTimeoutMS" validate:"gte=0"`
}

// HistoryConfig contains the update history store settings
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Feed seeds the URL and post-process command of a feed by name
type Feed struct {
	Name        string `yaml:"name" validate:"required"`
	URL         string `yaml:"url" validate:"omitempty,url"`
	Postprocess string `yaml:"postprocess"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	BaseFolder string        `yaml:"baseFolder"`
	MaxDepth   int           `yaml:"maxDepth" validate:"gte=0,lte=8"`
	Probe      ProbeConfig   `yaml:"probe"`
	Update     UpdateConfig  `yaml:"update"`
	History    HistoryConfig `yaml:"history"`
	Feeds      []Feed        `yaml:"feeds" validate:"dive"`
}
