package logging

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CusTimeEncoder creates a custom time encoder that adds the prefix and formats the time.
func CusTimeEncoder(config Config) zapcore.TimeEncoder {
	return func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(config.Prefix + t.Format(config.TimeFormat))
	}
}

// GetEncoder returns a zapcore.Encoder based on the config format.
func GetEncoder(config Config) zapcore.Encoder {
	encoderConfig := getEncoderConfig(config)
	if config.Format == "json" {
		return zapcore.NewJSONEncoder(encoderConfig)
	}
	return zapcore.NewConsoleEncoder(encoderConfig)
}

func getEncoderConfig(config Config) zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:     "message",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    config.ZapEncodeLevel(),
		EncodeTime:     CusTimeEncoder(config),
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
}

// getLevelPriority returns a LevelEnabler that only enables the exact level.
func getLevelPriority(level zapcore.Level) zap.LevelEnablerFunc {
	return func(l zapcore.Level) bool {
		return l == level
	}
}

// getZapCores builds one file core per level >= config.Level, so each level
// lands in its own file, plus a single terminal core when enabled.
func getZapCores(config Config) []zapcore.Core {
	minLevel := config.TransportLevel()
	cores := make([]zapcore.Core, 0, 8)

	if !config.DisableFile {
		for level := minLevel; level <= zapcore.FatalLevel; level++ {
			writer := newLevelWriter(config, level.String())
			registerWriter(writer)
			cores = append(cores, zapcore.NewCore(GetEncoder(config), zapcore.AddSync(writer), getLevelPriority(level)))
		}
	}

	if config.LogInTerminal {
		cores = append(cores, zapcore.NewCore(GetEncoder(config), zapcore.Lock(terminal), zap.NewAtomicLevelAt(minLevel)))
	}

	return cores
}
