package gps

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConfig holds configuration for the MQTT GPS provider.
type MQTTConfig struct {
	Broker   string `yaml:"broker" json:"broker"`
	Topic    string `yaml:"topic" json:"topic"`
	ClientID string `yaml:"client_id" json:"clientId"`
}

// MQTTFix is the JSON payload expected on the GPS topic.
type MQTTFix struct {
	Valid      bool     `json:"valid"`
	Latitude   float64  `json:"lat"`
	Longitude  float64  `json:"lon"`
	AltitudeM  *float64 `json:"alt_m"`
	SpeedKnots float64  `json:"speed_knots"`
	CourseDeg  float64  `json:"course_deg"`
	Satellites int      `json:"sats"`
	Time       string   `json:"time"`
}

// MQTTProvider subscribes to a topic carrying GPS fixes published by
// another process (e.g. a GPS producer on the same board).
type MQTTProvider struct {
	cfg    MQTTConfig
	client mqtt.Client

	mu    sync.Mutex
	last  *Data
	fresh bool // last has not been returned by Read yet
}

// NewMQTT creates an MQTT GPS provider.
func NewMQTT(cfg MQTTConfig) *MQTTProvider {
	if cfg.Broker == "" {
		cfg.Broker = "tcp://localhost:1883"
	}
	if cfg.Topic == "" {
		cfg.Topic = "altimeter/gps"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "audible-altimeter"
	}
	return &MQTTProvider{cfg: cfg}
}

func (m *MQTTProvider) Name() string { return "MQTT GPS" }

func (m *MQTTProvider) Connect() error {
	opts := mqtt.NewClientOptions().
		AddBroker(m.cfg.Broker).
		SetClientID(m.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)

	// Resubscribe after every (re)connect; the broker forgets
	// non-persistent subscriptions.
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		token := c.Subscribe(m.cfg.Topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			m.handle(msg.Payload())
		})
		token.Wait()
		if err := token.Error(); err != nil {
			log.Printf("[gps] mqtt subscribe %s: %v", m.cfg.Topic, err)
			return
		}
		log.Printf("[gps] subscribed to %s on %s", m.cfg.Topic, m.cfg.Broker)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("gps: mqtt connect %s: %w", m.cfg.Broker, token.Error())
	}
	m.mu.Lock()
	m.client = client
	m.mu.Unlock()
	return nil
}

func (m *MQTTProvider) Close() error {
	m.mu.Lock()
	client := m.client
	m.client = nil
	m.mu.Unlock()
	if client != nil {
		client.Disconnect(250)
	}
	return nil
}

// Read returns the most recent fix. A fix is reported with its altitude
// only once, so a silent publisher does not keep re-feeding a stale value.
func (m *MQTTProvider) Read() (*Data, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return nil, fmt.Errorf("gps: not connected")
	}
	if m.last == nil {
		return &Data{}, nil
	}
	out := *m.last
	if !m.fresh {
		out.AltitudeValid = false
	}
	m.fresh = false
	return &out, nil
}

func (m *MQTTProvider) handle(payload []byte) {
	d, err := decodeMQTTFix(payload)
	if err != nil {
		log.Printf("[gps] mqtt: %v", err)
		return
	}
	m.mu.Lock()
	m.last = d
	m.fresh = true
	m.mu.Unlock()
}

func decodeMQTTFix(payload []byte) (*Data, error) {
	var f MQTTFix
	if err := json.Unmarshal(payload, &f); err != nil {
		return nil, fmt.Errorf("decode fix: %w", err)
	}
	d := &Data{
		Valid:      f.Valid,
		Latitude:   f.Latitude,
		Longitude:  f.Longitude,
		Speed:      f.SpeedKnots * 1.852,
		Heading:    f.CourseDeg,
		Satellites: f.Satellites,
		Timestamp:  f.Time,
	}
	if f.Valid {
		d.FixQuality = 1
	}
	if f.AltitudeM != nil && f.Valid {
		d.Altitude = *f.AltitudeM
		d.AltitudeValid = true
	}
	return d, nil
}
