package config

import "github.com/coverbay/coverbay/pkg/lumber"

// Model definition for configuration

// EngineConfig is the application's configuration
type EngineConfig struct {
	Config         string
	Port           string
	Env            string
	Verbose        bool
	LogFile        string
	LogConfig      lumber.LoggingConfig
	DB             DB   `json:"db"`
	Auth           Auth `json:"auth"`
	PackageDepth   int  `json:"packageDepth"`
	AcceptEmpty    bool `json:"acceptEmptyReports" mapstructure:"acceptEmptyReports"`
	ArchiveUploads bool `json:"archiveUploads"`
}

// DB provides the relational storage configuration.
type DB struct {
	Host     string `env:"DB_HOST"`
	Port     string `env:"DB_PORT"`
	User     string `env:"DB_USER"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME"`
	SSLMode  string `env:"DB_SSLMODE"`
}

// Auth provides the SCM capability check configuration. An empty endpoint
// disables the check and allows every caller.
type Auth struct {
	Endpoint string `env:"AUTH_ENDPOINT"`
	Token    string `env:"AUTH_TOKEN"`
}
