package util

import "go.uber.org/zap"

var logger *zap.Logger

func GetLogger(packageName, function string) *zap.Logger {
	if logger == nil {
		SetupLoggerConfig()
	}
	return logger.With(zap.String("package", packageName), zap.String("function", function))
}

func SetupLoggerConfig() {
	config := zap.NewProductionConfig()
	config.Level = GetConfig().Logger.Level
	logger, _ = config.Build()
}
