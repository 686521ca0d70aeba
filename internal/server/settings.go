package server

import (
	"sync/atomic"

	"github.com/Sternrassler/gdgt-databox/pkg/databox"
)

// Settings holds the live site display configuration. It is swapped in full
// when the config file is reloaded; readers never see a partial update.
type Settings struct {
	current atomic.Pointer[databox.DisplayConfig]
}

// NewSettings returns Settings holding cfg.
func NewSettings(cfg databox.DisplayConfig) *Settings {
	s := &Settings{}
	s.Store(cfg)
	return s
}

// Load returns the current configuration.
func (s *Settings) Load() databox.DisplayConfig {
	return *s.current.Load()
}

// Store replaces the configuration.
func (s *Settings) Store(cfg databox.DisplayConfig) {
	cfg = cfg.Normalize()
	s.current.Store(&cfg)
}
