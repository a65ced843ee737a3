package speech

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// Engine names accepted in Config.Engine.
const (
	EngineEspeak   = "espeak"
	EngineAzure    = "azure"
	EngineLog      = "log"
	EngineDisabled = "disabled"
)

// ErrDisabled is returned by New when speech is turned off.
var ErrDisabled = errors.New("speech: disabled")

// Speaker speaks one utterance and returns when it has finished.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Config selects and configures the speech engine.
type Config struct {
	Engine      string       `yaml:"engine" json:"engine"` // "espeak", "azure", "log" or "disabled"
	Espeak      EspeakConfig `yaml:"espeak" json:"espeak"`
	AzureVoice  string       `yaml:"azure_voice" json:"azureVoice"`
	AzureRegion string       `yaml:"azure_region" json:"azureRegion"`
	AzureKey    string       `yaml:"-" json:"-"` // Environment only
	CacheSize   int          `yaml:"cache_size" json:"cacheSize"`
}

// New builds the speaker selected by cfg. Any failure here (missing
// binary, missing credentials, no audio device) is returned so the caller
// can run without announcements.
func New(cfg Config) (Speaker, error) {
	var tts Synthesizer
	switch cfg.Engine {
	case EngineDisabled:
		return nil, ErrDisabled
	case EngineLog:
		return LogSpeaker{}, nil
	case EngineAzure:
		c, err := NewAzureClient(cfg.AzureKey, cfg.AzureRegion, WithVoice(cfg.AzureVoice))
		if err != nil {
			return nil, err
		}
		tts = c
	case EngineEspeak, "":
		e, err := NewEspeak(cfg.Espeak)
		if err != nil {
			return nil, err
		}
		tts = e
	default:
		return nil, fmt.Errorf("speech: unknown engine %q", cfg.Engine)
	}

	player, err := NewPlayer(tts.Format())
	if err != nil {
		return nil, err
	}
	log.Printf("[speech] using %s", tts.Voice())
	return NewVoice(tts, player, cfg.CacheSize), nil
}
