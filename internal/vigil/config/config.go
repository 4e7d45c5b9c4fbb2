package config

import (
	"fmt"
	"strings"

	"github.com/mkravets/vigil/pkg/config"
	"github.com/mkravets/vigil/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

const (
	PrefsBackendMemory   = "memory"
	PrefsBackendPostgres = "postgres"
)

type Config struct {
	HTTPServer config.HTTPConfig     `koanf:"server"`
	Log        config.LogConfig      `koanf:"log"`
	PProf      config.PProfConfig    `koanf:"pprof"`
	Shutdown   config.ShutdownConfig `koanf:"shutdown"`
	Prefs      PrefsConfig           `koanf:"prefs"`
	Nats       NatsConfig            `koanf:"nats"`
}

// PrefsConfig selects and configures the preference store backend.
type PrefsConfig struct {
	Backend  string                `koanf:"backend"`
	Database config.DatabaseConfig `koanf:"database"`
}

// NatsConfig wraps the shared NATS settings with an enable switch; the
// relay only runs when a broker is configured.
type NatsConfig struct {
	Enabled           bool `koanf:"enabled"`
	config.NATSConfig `koanf:",squash"`
}

func (c *Config) String() string {
	var b strings.Builder

	b.WriteString("\n--- Server Configuration ---\n")
	b.WriteString(fmt.Sprintf("  server.port: %d\n", c.HTTPServer.Port))
	b.WriteString(fmt.Sprintf("  server.maxHeaderBytes: %d\n", c.HTTPServer.MaxHeaderBytes))
	b.WriteString(fmt.Sprintf("  server.timeout.read: %v\n", c.HTTPServer.Timeout.Read))
	b.WriteString(fmt.Sprintf("  server.timeout.write: %v\n", c.HTTPServer.Timeout.Write))
	b.WriteString(fmt.Sprintf("  server.timeout.idle: %v\n", c.HTTPServer.Timeout.Idle))
	b.WriteString(fmt.Sprintf("  server.timeout.readHeader: %v\n", c.HTTPServer.Timeout.ReadHeader))

	b.WriteString("\n--- Preference Store ---\n")
	b.WriteString(fmt.Sprintf("  prefs.backend: %s\n", c.Prefs.Backend))
	if c.Prefs.Backend == PrefsBackendPostgres {
		b.WriteString(fmt.Sprintf("  prefs.database.url: %s\n", maskURL(c.Prefs.Database.URL)))
		b.WriteString(fmt.Sprintf("  prefs.database.timeout: %s\n", c.Prefs.Database.Timeout))
	}

	b.WriteString("\n--- Messaging ---\n")
	b.WriteString(fmt.Sprintf("  nats.enabled: %t\n", c.Nats.Enabled))
	if c.Nats.Enabled {
		b.WriteString(fmt.Sprintf("  nats.url: %s\n", c.Nats.Url))
		b.WriteString(fmt.Sprintf("  nats.timeout: %s\n", c.Nats.Timeout))
	}

	b.WriteString("\n--- Observability & Logging ---\n")
	b.WriteString(fmt.Sprintf("  log.level: %s\n", c.Log.Level))
	b.WriteString(fmt.Sprintf("  pprof.enabled: %t\n", c.PProf.Enabled))
	b.WriteString(fmt.Sprintf("  pprof.address: %s\n", c.PProf.Addr))

	b.WriteString("\n--- Application Behavior ---\n")
	b.WriteString(fmt.Sprintf("  shutdown.timeout: %s\n", c.Shutdown.Timeout))

	return b.String()
}

func maskURL(url string) string {
	if url == "" {
		return "<not configured>"
	}
	// Mask the URL by replacing the username and password with "****"
	parts := strings.Split(url, "@")
	if len(parts) == 2 {
		return "****@" + parts[1]
	}
	return "****"
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	if err := c.HTTPServer.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.PProf.Validate(); err != nil {
		return err
	}
	if err := c.Shutdown.Validate(); err != nil {
		return err
	}
	switch c.Prefs.Backend {
	case PrefsBackendMemory:
	case PrefsBackendPostgres:
		if err := c.Prefs.Database.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown prefs backend: %q", c.Prefs.Backend)
	}
	if c.Nats.Enabled {
		if err := c.Nats.Validate(); err != nil {
			return err
		}
	}
	return nil
}
