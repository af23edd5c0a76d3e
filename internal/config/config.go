// Package config loads and validates the service's YAML configuration:
// service-level settings plus the list of monitored zones.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/roadwatch/datex-zone-monitor/internal/domain"
)

// Per-kind defaults applied when a zone omits the setting.
const (
	DefaultIncidentRadiusKM   = 50.0
	DefaultIncidentInterval   = 10 * time.Minute
	DefaultIncidentMaxAgeDays = 7

	DefaultChargingRadiusKM = 20.0
	DefaultChargingInterval = 30 * time.Minute
)

// Duration wraps time.Duration so YAML values like "10m" parse directly.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Service holds process-level settings.
type Service struct {
	HTTPAddr        string   `yaml:"http_addr"`
	LogLevel        string   `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LogFormat       string   `yaml:"log_format" validate:"omitempty,oneof=json text"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	FetchTimeout    Duration `yaml:"fetch_timeout"`
	CacheTTL        Duration `yaml:"cache_ttl"`
	CycleTimeout    Duration `yaml:"cycle_timeout"`
}

// Kafka configures the optional result sink. Disabled unless brokers are
// given.
type Kafka struct {
	Brokers []string `yaml:"brokers" validate:"omitempty,min=1,dive,hostname_port"`
	Topic   string   `yaml:"topic"`
}

// Enabled reports whether the Kafka sink should be wired.
func (k Kafka) Enabled() bool { return len(k.Brokers) > 0 }

// Reference configures where a zone measures distance from. Lat and Lon are
// pointers so an absent coordinate is distinguishable from 0,0.
type Reference struct {
	Source   string   `yaml:"source" validate:"omitempty,oneof=static person sensor"`
	Lat      *float64 `yaml:"lat" validate:"omitempty,gte=-90,lte=90"`
	Lon      *float64 `yaml:"lon" validate:"omitempty,gte=-180,lte=180"`
	EntityID string   `yaml:"entity_id"`
}

// ZoneConfig is one monitored zone as written in the config file.
type ZoneConfig struct {
	Name            string    `yaml:"name" validate:"required"`
	Kind            string    `yaml:"kind" validate:"required,oneof=incident charging-point"`
	FeedURL         string    `yaml:"feed_url" validate:"required,url"`
	RadiusKM        float64   `yaml:"radius_km" validate:"gte=0"`
	Interval        Duration  `yaml:"interval"`
	MaxAgeDays      int       `yaml:"max_age_days" validate:"gte=0"`
	UpdateEpsilonKM float64   `yaml:"update_epsilon_km" validate:"gte=0"`
	Reference       Reference `yaml:"reference"`
}

// Config is the full parsed configuration.
type Config struct {
	Service Service      `yaml:"service"`
	Kafka   Kafka        `yaml:"kafka"`
	Zones   []ZoneConfig `yaml:"zones" validate:"required,min=1,dive"`
}

// Load reads, validates, and defaults the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse does the same from an in-memory document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if err := cfg.checkZones(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Service.HTTPAddr == "" {
		c.Service.HTTPAddr = ":8080"
	}
	if c.Service.LogLevel == "" {
		c.Service.LogLevel = "info"
	}
	if c.Service.LogFormat == "" {
		c.Service.LogFormat = "json"
	}
	if c.Service.ShutdownTimeout == 0 {
		c.Service.ShutdownTimeout = Duration(10 * time.Second)
	}
	if c.Service.FetchTimeout == 0 {
		c.Service.FetchTimeout = Duration(15 * time.Second)
	}
	if c.Service.CacheTTL == 0 {
		c.Service.CacheTTL = Duration(time.Minute)
	}
	if c.Service.CycleTimeout == 0 {
		c.Service.CycleTimeout = Duration(time.Minute)
	}
	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		c.Kafka.Topic = "zone-results"
	}

	for i := range c.Zones {
		z := &c.Zones[i]
		if z.Reference.Source == "" {
			z.Reference.Source = "static"
		}
		switch z.Kind {
		case "charging-point":
			if z.RadiusKM == 0 {
				z.RadiusKM = DefaultChargingRadiusKM
			}
			if z.Interval == 0 {
				z.Interval = Duration(DefaultChargingInterval)
			}
		default:
			if z.RadiusKM == 0 {
				z.RadiusKM = DefaultIncidentRadiusKM
			}
			if z.Interval == 0 {
				z.Interval = Duration(DefaultIncidentInterval)
			}
			if z.MaxAgeDays == 0 {
				z.MaxAgeDays = DefaultIncidentMaxAgeDays
			}
		}
	}
}

// checkZones enforces the cross-field rules validator tags cannot express.
func (c *Config) checkZones() error {
	seen := make(map[string]struct{}, len(c.Zones))
	for _, z := range c.Zones {
		if _, dup := seen[z.Name]; dup {
			return fmt.Errorf("zone %q: duplicate name", z.Name)
		}
		seen[z.Name] = struct{}{}

		switch z.Reference.Source {
		case "static":
			if z.Reference.Lat == nil || z.Reference.Lon == nil {
				return fmt.Errorf("zone %q: static reference needs lat and lon", z.Name)
			}
		case "person", "sensor":
			if z.Reference.EntityID == "" {
				return fmt.Errorf("zone %q: %s reference needs entity_id", z.Name, z.Reference.Source)
			}
		}
	}
	return nil
}

// DomainZones converts the configured zones to their domain form.
func (c *Config) DomainZones() []domain.Zone {
	zones := make([]domain.Zone, 0, len(c.Zones))
	for _, z := range c.Zones {
		ref := domain.ReferenceConfig{
			Source:   domain.RefSource(z.Reference.Source),
			EntityID: z.Reference.EntityID,
		}
		if z.Reference.Lat != nil && z.Reference.Lon != nil {
			ref.Geo = domain.Geo{Lat: *z.Reference.Lat, Lon: *z.Reference.Lon}
		}
		zones = append(zones, domain.Zone{
			Name:            z.Name,
			Kind:            domain.Kind(z.Kind),
			FeedURL:         z.FeedURL,
			RadiusKM:        z.RadiusKM,
			Reference:       ref,
			MaxAge:          time.Duration(z.MaxAgeDays) * 24 * time.Hour,
			UpdateEpsilonKM: z.UpdateEpsilonKM,
		})
	}
	return zones
}
