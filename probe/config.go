package probe

import "time"

// Config holds probe server configuration.
type Config struct {
	Enabled     bool          `yaml:"enabled" mapstructure:"enabled"`
	Host        string        `yaml:"host" mapstructure:"host"`
	Port        int           `yaml:"port" mapstructure:"port" validate:"gte=0,lte=65535"`
	ReadTimeout time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8081
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 5 * time.Second
	}
}
