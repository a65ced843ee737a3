package speech

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// espeak-ng --stdout writes 16-bit mono WAV at this rate.
const espeakSampleRate = 22050

// EspeakConfig configures the local espeak-ng synthesizer.
type EspeakConfig struct {
	Binary string `yaml:"binary" json:"binary"`    // default "espeak-ng"
	Voice  string `yaml:"voice" json:"voice"`      // e.g. "en-us"
	Rate   int    `yaml:"rate_wpm" json:"rateWpm"` // words per minute
}

// Espeak synthesizes speech by running espeak-ng.
type Espeak struct {
	bin   string
	voice string
	rate  int
}

// NewEspeak creates the synthesizer and checks that the binary exists.
func NewEspeak(cfg EspeakConfig) (*Espeak, error) {
	if cfg.Binary == "" {
		cfg.Binary = "espeak-ng"
	}
	if cfg.Voice == "" {
		cfg.Voice = "en-us"
	}
	if cfg.Rate <= 0 {
		cfg.Rate = 175
	}
	bin, err := exec.LookPath(cfg.Binary)
	if err != nil {
		return nil, fmt.Errorf("speech: %s not found: %w", cfg.Binary, err)
	}
	return &Espeak{bin: bin, voice: cfg.Voice, rate: cfg.Rate}, nil
}

func (e *Espeak) Voice() string { return "espeak:" + e.voice }

func (e *Espeak) Format() Format {
	return Format{SampleRate: espeakSampleRate, Channels: 1, BitsPerSample: 16}
}

func (e *Espeak) args(text string) []string {
	return []string{"--stdout", "-v", e.voice, "-s", strconv.Itoa(e.rate), "--", text}
}

// Synthesize returns WAV bytes for text.
func (e *Espeak) Synthesize(ctx context.Context, text string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.bin, e.args(text)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("speech: espeak: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("speech: espeak: %w", err)
	}
	return stdout.Bytes(), nil
}
