package bridge

import (
	"fmt"

	"joblens-agent/internal/config"
)

// NewTransportPair creates the page-side and background-side transports for
// the configured kind.
func NewTransportPair(cfg *config.Config) (page Transport, background Transport, err error) {
	switch cfg.Bridge.Transport {
	case "local", "":
		p, b := NewLocalPair(cfg.Bridge.QueueSize)
		return p, b, nil
	case "redis":
		p, err := NewRedisTransport(cfg, "page")
		if err != nil {
			return nil, nil, err
		}
		b, err := NewRedisTransport(cfg, "background")
		if err != nil {
			p.Close()
			return nil, nil, err
		}
		return p, b, nil
	default:
		return nil, nil, fmt.Errorf("unsupported bridge transport: %s", cfg.Bridge.Transport)
	}
}
