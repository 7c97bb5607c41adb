package config

import (
	"fmt"
	"log"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// SerialConfig describes how to reach the URTSii.
type SerialConfig struct {
	Port           string `yaml:"port"`             // device path or tcp://host:port
	BaudRate       int    `yaml:"baud_rate"`        // URTSii factory default is 9600
	Mock           bool   `yaml:"mock"`             // log frames instead of writing them
	DialTimeoutMs  int    `yaml:"dial_timeout_ms"`  // tcp:// endpoints only
	WriteTimeoutMs int    `yaml:"write_timeout_ms"` // tcp:// endpoints only
}

// URTSConfig selects which channels discovery creates.
type URTSConfig struct {
	PortIndex  int   `yaml:"port_index"` // serial port number in shade addresses
	Controller int   `yaml:"controller"` // URTSii address (1 unless re-addressed)
	Channels   []int `yaml:"channels"`   // 1-16; empty = all 16
}

// ShadeConfig overrides one discovered channel.
type ShadeConfig struct {
	Address     string   `yaml:"address"` // PP_CC_NN
	Name        string   `yaml:"name"`
	TravelTimeS float64  `yaml:"travel_time_s"`
	Position    *float64 `yaml:"position,omitempty"` // seed; omitted = unknown
}

// MQTTConfig configures the host integration over MQTT.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"` // empty = generated
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	TravelTimeS  float64 `yaml:"travel_time_s"`  // full-travel time for shades without their own
	DebugLevel   int     `yaml:"debug_level"`    // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO     bool    `yaml:"mock_gpio"`      // use mock GPIO (true=dev/test, false=real Raspberry Pi)
	StatusLEDPin int     `yaml:"status_led_pin"` // BCM pin lit while the URTSii is reachable. 0 = not used.
	WebPort      int     `yaml:"web_port"`       // 0 = web server disabled
}

// Config aggregates all application configuration.
type Config struct {
	Serial   SerialConfig   `yaml:"serial"`
	URTS     URTSConfig     `yaml:"urts"`
	Shades   []ShadeConfig  `yaml:"shades"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// Load reads a YAML file, applies .env / environment overrides and returns
// the validated configuration. An empty path skips the file.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal yaml: %w", err)
		}
	}

	// Load .env file if it exists
	_ = godotenv.Load()
	applyEnv(&cfg)

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) normalize() error {
	if cfg.Serial.Port == "" {
		cfg.Serial.Port = "/dev/ttyUSB0" // most installs use a USB-RS232 adapter
	}
	if cfg.Serial.BaudRate <= 0 {
		cfg.Serial.BaudRate = 9600
	}
	if cfg.URTS.PortIndex <= 0 {
		cfg.URTS.PortIndex = 1
	}
	if cfg.URTS.Controller <= 0 {
		cfg.URTS.Controller = 1
	}
	if len(cfg.URTS.Channels) == 0 {
		for ch := 1; ch <= 16; ch++ {
			cfg.URTS.Channels = append(cfg.URTS.Channels, ch)
		}
	}
	for _, ch := range cfg.URTS.Channels {
		if ch < 1 || ch > 16 {
			return fmt.Errorf("urts.channels: channel %d must be between 1 and 16", ch)
		}
	}

	if cfg.Defaults.TravelTimeS == 0 {
		cfg.Defaults.TravelTimeS = 8 // reasonable default
	}
	if err := validTravelTime("defaults.travel_time_s", cfg.Defaults.TravelTimeS); err != nil {
		return err
	}
	if cfg.Defaults.DebugLevel < 0 || cfg.Defaults.DebugLevel > 4 {
		return fmt.Errorf("debug_level must be between 0 and 4, got %d", cfg.Defaults.DebugLevel)
	}
	if cfg.Defaults.WebPort < 0 || cfg.Defaults.WebPort > 65535 {
		return fmt.Errorf("web_port must be 0-65535, got %d", cfg.Defaults.WebPort)
	}

	for i, s := range cfg.Shades {
		if s.Address == "" {
			return fmt.Errorf("shades[%d]: address is required", i)
		}
		if s.TravelTimeS != 0 {
			if err := validTravelTime(fmt.Sprintf("shades[%d].travel_time_s", i), s.TravelTimeS); err != nil {
				return err
			}
		}
		if s.Position != nil && (*s.Position < 0 || *s.Position > 100) {
			return fmt.Errorf("shades[%d].position must be between 0 and 100, got %.2f", i, *s.Position)
		}
	}

	if cfg.MQTT.Broker == "" {
		cfg.MQTT.Broker = "tcp://localhost:1883"
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "somfy"
	}
	return nil
}

func validTravelTime(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 || v > 60 {
		return fmt.Errorf("%s must be > 0 and <= 60 seconds, got %g", field, v)
	}
	return nil
}

// ShadeList returns one entry per configured channel, with per-shade
// overrides merged in. Overrides for addresses outside the channel list are
// appended. Entries are ordered by address.
func (c *Config) ShadeList() []ShadeConfig {
	byAddr := make(map[string]ShadeConfig)
	for _, ch := range c.URTS.Channels {
		addr := fmt.Sprintf("%02d_%02d_%02d", c.URTS.PortIndex, c.URTS.Controller, ch)
		byAddr[addr] = ShadeConfig{Address: addr}
	}
	for _, s := range c.Shades {
		byAddr[s.Address] = s
	}
	out := make([]ShadeConfig, 0, len(byAddr))
	for _, s := range byAddr {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// DialTimeout returns the network dial timeout for tcp:// ports.
func (c *Config) DialTimeout() time.Duration {
	return time.Duration(c.Serial.DialTimeoutMs) * time.Millisecond
}

// WriteTimeout returns the per-frame write timeout for tcp:// ports.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Serial.WriteTimeoutMs) * time.Millisecond
}

// applyEnv overlays SOMFY_* and MQTT_* environment variables.
func applyEnv(cfg *Config) {
	cfg.Serial.Port = getEnv("SOMFY_SERIAL_PORT", cfg.Serial.Port)
	cfg.Serial.Mock = getEnvBool("SOMFY_MOCK_SERIAL", cfg.Serial.Mock)
	cfg.Defaults.DebugLevel = getEnvInt("SOMFY_DEBUG_LEVEL", cfg.Defaults.DebugLevel)
	cfg.Defaults.MockGPIO = getEnvBool("SOMFY_MOCK_GPIO", cfg.Defaults.MockGPIO)
	cfg.Defaults.TravelTimeS = getEnvFloat("SOMFY_TRAVEL_TIME", cfg.Defaults.TravelTimeS)
	cfg.Defaults.WebPort = getEnvInt("SOMFY_WEB_PORT", cfg.Defaults.WebPort)

	cfg.MQTT.Enabled = getEnvBool("MQTT_ENABLED", cfg.MQTT.Enabled)
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", cfg.MQTT.Broker)
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", cfg.MQTT.ClientID)
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", cfg.MQTT.Username)
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", cfg.MQTT.Password)
	cfg.MQTT.TopicPrefix = getEnv("MQTT_TOPIC_PREFIX", cfg.MQTT.TopicPrefix)
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as int, using default: %v", key, err)
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Warning: failed to parse %s as float, using default: %v", key, err)
		return defaultValue
	}
	return f
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as bool, using default: %v", key, err)
		return defaultValue
	}
	return b
}
