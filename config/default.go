package config

import (
	"github.com/coverbay/coverbay/pkg/global"
	"github.com/spf13/viper"
)

func setDefaultConfig() {
	viper.SetDefault("LogConfig.EnableConsole", true)
	viper.SetDefault("LogConfig.ConsoleJSONFormat", false)
	viper.SetDefault("LogConfig.ConsoleLevel", "debug")
	viper.SetDefault("LogConfig.EnableFile", false)
	viper.SetDefault("LogConfig.FileJSONFormat", true)
	viper.SetDefault("LogConfig.FileLevel", "debug")
	viper.SetDefault("LogConfig.FileLocation", "coverbay.log")
	viper.SetDefault("Env", "prod")
	viper.SetDefault("Port", global.DefaultPort)
	viper.SetDefault("Verbose", false)
	viper.SetDefault("DB.Host", "localhost")
	viper.SetDefault("DB.Port", "5432")
	viper.SetDefault("DB.User", "postgres")
	viper.SetDefault("DB.Name", "coverbay")
	viper.SetDefault("DB.SSLMode", "disable")
	viper.SetDefault("PackageDepth", global.DefaultPackageDepth)
	viper.SetDefault("AcceptEmptyReports", true)
	viper.SetDefault("ArchiveUploads", false)
}
