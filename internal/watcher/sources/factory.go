package sources

import (
	"fmt"

	"joblens-agent/internal/config"
)

// NewPageSource builds the configured page source.
func NewPageSource(cfg *config.Config) (PageSource, error) {
	switch cfg.Watcher.Source {
	case "static":
		return NewStaticSource(cfg.Watcher.StartURL, ""), nil
	case "fetch":
		return NewFetchSource(cfg), nil
	case "live":
		return NewLiveSource(cfg)
	default:
		return nil, fmt.Errorf("unknown page source: %s", cfg.Watcher.Source)
	}
}
