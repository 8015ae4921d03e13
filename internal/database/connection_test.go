package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/logger"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]logger.LogLevel{
		"silent": logger.Silent,
		"ERROR":  logger.Error,
		" info ": logger.Info,
		"warn":   logger.Warn,
		"":       logger.Warn,
		"debug":  logger.Warn,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLogLevel(in), "level %q", in)
	}
}

func TestGormConfig(t *testing.T) {
	cfg := GormConfig("silent")
	assert.True(t, cfg.TranslateError)
	assert.True(t, cfg.DisableForeignKeyConstraintWhenMigrating)
	assert.NotNil(t, cfg.Logger)
}
