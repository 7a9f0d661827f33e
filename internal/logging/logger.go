// Package logging builds the categorized zap loggers used across secretgrab.
// Each component gets a child logger named after its category; categories switched off
// in the config are dropped at the core.
package logging

import (
	"fmt"
	"strings"

	"secretgrab/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot    Category = "boot"    // Startup, config, flags
	CategoryBrowser Category = "browser" // Launch, navigation, capture wait
	CategoryCapture Category = "capture" // Buffer extraction
	CategorySecrets Category = "secrets" // Normalization and summary
	CategoryOutput  Category = "output"  // File writes
)

// Categories lists every category in pipeline order.
var Categories = []Category{CategoryBoot, CategoryBrowser, CategoryCapture, CategorySecrets, CategoryOutput}

// New builds the root logger from cfg. Format "json" uses the production encoder; anything
// else gets the console encoder. Output always goes to stderr, plus cfg.File when set.
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var zc zap.Config
	if strings.EqualFold(cfg.Format, "json") {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.Development = false
		zc.DisableStacktrace = true
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	if cfg.File != "" {
		zc.OutputPaths = append(zc.OutputPaths, cfg.File)
	}

	disabled := make(map[string]bool)
	for _, c := range Categories {
		if !cfg.IsCategoryEnabled(string(c)) {
			disabled[string(c)] = true
		}
	}

	logger, err := zc.Build(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return filterCategories(core, disabled)
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}

// For returns the child logger for a category. A nil base yields a no-op logger.
func For(base *zap.Logger, category Category) *zap.Logger {
	if base == nil {
		return zap.NewNop()
	}
	return base.Named(string(category))
}

// filterCategories wraps core so entries from disabled categories are dropped.
func filterCategories(core zapcore.Core, disabled map[string]bool) zapcore.Core {
	if len(disabled) == 0 {
		return core
	}
	return &categoryCore{Core: core, disabled: disabled}
}

type categoryCore struct {
	zapcore.Core
	disabled map[string]bool
}

func (c *categoryCore) With(fields []zapcore.Field) zapcore.Core {
	return &categoryCore{Core: c.Core.With(fields), disabled: c.disabled}
}

func (c *categoryCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	root, _, _ := strings.Cut(ent.LoggerName, ".")
	if c.disabled[root] {
		return ce
	}
	return c.Core.Check(ent, ce)
}
