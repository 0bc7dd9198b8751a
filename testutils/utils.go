package testutils

import (
	"github.com/coverbay/coverbay/config"
	"github.com/coverbay/coverbay/pkg/global"
	"github.com/coverbay/coverbay/pkg/lumber"
)

// GetLogger returns a console only lumber.Logger for tests.
func GetLogger() (lumber.Logger, error) {
	logger, err := lumber.NewLogger(lumber.LoggingConfig{EnableConsole: true, ConsoleLevel: lumber.Debug}, true, lumber.InstanceZapLogger)
	if err != nil {
		return nil, err
	}
	return logger, nil
}

// GetConfig returns an EngineConfig populated with defaults for tests.
func GetConfig() *config.EngineConfig {
	return &config.EngineConfig{
		Port:         global.DefaultPort,
		Env:          "test",
		Verbose:      true,
		PackageDepth: global.DefaultPackageDepth,
		AcceptEmpty:  true,
	}
}
