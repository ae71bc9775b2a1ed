// Package config loads the printdeck configuration file and provides a
// narrow read-only view over viper for module code.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from the given YAML file (optional) plus
// PRINTDECK_* environment overrides, and applies defaults.
func Load(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("PRINTDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	applyDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	return v, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("store.path", "printdeck.db")
	v.SetDefault("business.store_name", "")

	v.SetDefault("plugins.dispatch.max_retries", 3)
	v.SetDefault("plugins.dispatch.send_timeout", "15s")
	v.SetDefault("plugins.dispatch.retry_backoff", "2s")

	v.SetDefault("plugins.discovery.probe_timeout", "1500ms")
	v.SetDefault("plugins.discovery.batch_size", 20)
	v.SetDefault("plugins.discovery.probes_per_second", 100)
	v.SetDefault("plugins.discovery.mdns", true)
	v.SetDefault("plugins.discovery.snmp", true)

	v.SetDefault("plugins.render.enabled", false)
}
