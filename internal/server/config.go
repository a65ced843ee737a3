package server

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/shaunagostinho/audible-altimeter/internal/altitude"
	"github.com/shaunagostinho/audible-altimeter/internal/gps"
	"github.com/shaunagostinho/audible-altimeter/internal/logger"
	"github.com/shaunagostinho/audible-altimeter/internal/speech"
)

// DefaultConfigPath is where the service looks for its config file.
const DefaultConfigPath = "/etc/audible-altimeter/config.yaml"

// Config holds all altimeter configuration. It is read once at startup;
// runtime setting changes live in altitude.State and are never written
// back.
type Config struct {
	GPS GPSConfig `yaml:"gps" json:"gps"`

	// Launch settings for zero/unit/precision/delay
	Altimeter altitude.Settings `yaml:"altimeter" json:"altimeter"`

	Speech speech.Config `yaml:"speech" json:"speech"`

	// Flight recorder
	Logging logger.Config `yaml:"logging" json:"logging"`

	Server ServerConfig `yaml:"server" json:"server"`
}

type GPSConfig struct {
	Type     string         `yaml:"type" json:"type"`          // "nmea", "gpsd", "mqtt", "demo" or "disabled"
	PortPath string         `yaml:"port_path" json:"portPath"` // e.g. /dev/ttyGPS
	BaudRate int            `yaml:"baud_rate" json:"baudRate"`
	GPSDAddr string         `yaml:"gpsd_addr" json:"gpsdAddr"`
	MQTT     gps.MQTTConfig `yaml:"mqtt" json:"mqtt"`
	PollMs   int            `yaml:"poll_ms" json:"pollMs"`
}

// NMEA returns the serial settings for the NMEA provider.
func (g GPSConfig) NMEA() gps.NMEAConfig {
	return gps.NMEAConfig{PortPath: g.PortPath, BaudRate: g.BaudRate}
}

// PollInterval returns the feed polling interval.
func (g GPSConfig) PollInterval() time.Duration {
	if g.PollMs <= 0 {
		return gps.DefaultPollInterval
	}
	return time.Duration(g.PollMs) * time.Millisecond
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr" json:"listenAddr"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		GPS: GPSConfig{
			Type:     "nmea",
			PortPath: "/dev/ttyGPS",
			BaudRate: 9600,
			GPSDAddr: "127.0.0.1:2947",
			MQTT: gps.MQTTConfig{
				Broker:   "tcp://localhost:1883",
				Topic:    "altimeter/gps",
				ClientID: "audible-altimeter",
			},
			PollMs: 500,
		},
		Altimeter: altitude.DefaultSettings(),
		Speech: speech.Config{
			Engine: speech.EngineEspeak,
			Espeak: speech.EspeakConfig{
				Binary: "espeak-ng",
				Voice:  "en-us",
				Rate:   175,
			},
			AzureVoice: speech.DefaultAzureVoice,
			CacheSize:  256,
		},
		Logging: logger.Config{
			Enabled:    false,
			Path:       "/var/log/audible-altimeter",
			IntervalMs: 1000,
		},
		Server: ServerConfig{
			ListenAddr: ":8080",
		},
	}
}

// LoadConfig reads config from a YAML file, then applies .env and environment
// variable overrides. Falls back to defaults if YAML not found.
func LoadConfig(path string) *Config {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("[config] no config at %s, using defaults", path)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		log.Printf("[config] error parsing %s: %v, using defaults", path, err)
		cfg = DefaultConfig()
	} else {
		log.Printf("[config] loaded from %s", path)
	}

	// .env next to the config, then in CWD. godotenv never overrides
	// variables already set in the real environment.
	for _, ep := range []string{filepath.Join(filepath.Dir(path), ".env"), ".env"} {
		if err := godotenv.Load(ep); err == nil {
			log.Printf("[config] loaded .env from %s", ep)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Altimeter.Validate(); err != nil {
		log.Printf("[config] altimeter: %v, falling back to defaults for invalid fields", err)
	}
	return cfg
}

// applyEnvOverrides reads environment variables and overrides config values.
// Supported: GPS_TYPE, GPS_PORT, GPS_BAUD, GPSD_ADDR, MQTT_BROKER,
// MQTT_TOPIC, SPEECH_ENGINE, AZURE_SPEECH_KEY, AZURE_SPEECH_REGION,
// ALT_UNIT, ALT_PRECISION, ALT_DELAY_S, LISTEN_ADDR, LOG_ENABLED, LOG_PATH,
// LOG_INTERVAL_MS
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GPS_TYPE"); v != "" {
		c.GPS.Type = v
	}
	if v := os.Getenv("GPS_PORT"); v != "" {
		c.GPS.PortPath = v
	}
	if v := os.Getenv("GPS_BAUD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.GPS.BaudRate = n
		}
	}
	if v := os.Getenv("GPSD_ADDR"); v != "" {
		c.GPS.GPSDAddr = v
	}
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		c.GPS.MQTT.Broker = v
	}
	if v := os.Getenv("MQTT_TOPIC"); v != "" {
		c.GPS.MQTT.Topic = v
	}
	// Speech
	if v := os.Getenv("SPEECH_ENGINE"); v != "" {
		c.Speech.Engine = v
	}
	if v := os.Getenv(speech.EnvAzureSpeechKey); v != "" {
		c.Speech.AzureKey = v
	}
	if v := os.Getenv(speech.EnvAzureSpeechRegion); v != "" {
		c.Speech.AzureRegion = v
	}
	// Altimeter launch settings
	if v := os.Getenv("ALT_UNIT"); v != "" {
		c.Altimeter.Unit = altitude.Unit(v)
	}
	if v := os.Getenv("ALT_PRECISION"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Altimeter.Precision = n
		}
	}
	if v := os.Getenv("ALT_DELAY_S"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			c.Altimeter.DelaySeconds = n
		}
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}
	// Logging
	if v := os.Getenv("LOG_ENABLED"); v != "" {
		c.Logging.Enabled = v == "1" || v == "true" || v == "yes"
	}
	if v := os.Getenv("LOG_PATH"); v != "" {
		c.Logging.Path = v
	}
	if v := os.Getenv("LOG_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Logging.IntervalMs = n
		}
	}
}

// String summarizes the config for the startup log. Credentials are left
// out.
func (c *Config) String() string {
	return fmt.Sprintf("gps=%s speech=%s unit=%s precision=%d delay=%gs listen=%s recorder=%v",
		c.GPS.Type, c.Speech.Engine, c.Altimeter.Unit, c.Altimeter.Precision,
		c.Altimeter.DelaySeconds, c.Server.ListenAddr, c.Logging.Enabled)
}
