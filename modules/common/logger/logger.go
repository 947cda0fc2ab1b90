package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"persona-studio-server/modules/common/config"
)

// Setup - logrus 표준 로거 설정 (level, format, output)
func Setup(cfg *config.Config) {
	level, err := log.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if strings.ToLower(cfg.LogFormat) == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	log.SetOutput(writerFor(cfg))
}

// writerFor - LOG_OUTPUT: stdout, file, both
func writerFor(cfg *config.Config) io.Writer {
	output := strings.ToLower(cfg.LogOutput)
	if output != "file" && output != "both" {
		return os.Stdout
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		log.Printf("⚠️  Failed to create log directory, falling back to stdout: %v", err)
		return os.Stdout
	}

	rotating := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
		Compress:   true,
	}

	if output == "both" {
		return io.MultiWriter(os.Stdout, rotating)
	}
	return rotating
}

// With - 모듈 태그가 붙은 entry
func With(module string) *log.Entry {
	return log.WithField("module", module)
}
