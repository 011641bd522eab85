package treeset

import (
	"testing"

	"github.com/anacrolix/log"
)

func TestingConfig(t testing.TB) *Config {
	cfg := NewDefaultConfig()
	cfg.Logger = log.Default.WithContextText(t.Name())
	//cfg.Debug = true
	return cfg
}
