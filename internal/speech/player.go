package speech

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Player handles audio playback of WAV/PCM data via oto.
type Player struct {
	ctx    *oto.Context
	format Format
	mu     sync.Mutex
	active *oto.Player // currently playing, nil when idle
}

// NewPlayer creates an audio player for 16-bit PCM in the given format.
// oto allows one context per process, so create one Player and share it.
// Returns an error if the audio device is unavailable.
func NewPlayer(f Format) (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   f.SampleRate,
		ChannelCount: f.Channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("speech: audio device: %w", err)
	}
	<-readyChan

	f.BitsPerSample = 16
	log.Printf("[speech] audio player initialized (rate=%d, channels=%d)", f.SampleRate, f.Channels)
	return &Player{ctx: ctx, format: f}, nil
}

// Play plays WAV audio data synchronously. Blocks until playback finishes,
// Stop is called, or ctx is cancelled.
func (p *Player) Play(ctx context.Context, wavData []byte) error {
	pcm, f, err := decodeWAV(wavData)
	if err != nil {
		return err
	}
	if f != p.format {
		return fmt.Errorf("speech: wav format %+v does not match player %+v", f, p.format)
	}

	player := p.ctx.NewPlayer(bytes.NewReader(pcm))

	p.mu.Lock()
	p.active = player
	p.mu.Unlock()

	player.Play()

	// Wait for playback to complete or be interrupted.
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
wait:
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			break wait
		case <-ticker.C:
		}
	}

	p.mu.Lock()
	if p.active == player {
		p.active = nil
	}
	p.mu.Unlock()

	if err := player.Close(); err != nil {
		return err
	}
	return ctx.Err()
}

// Stop interrupts the currently playing audio, if any. Safe to call
// concurrently and when nothing is playing.
func (p *Player) Stop() {
	p.mu.Lock()
	active := p.active
	p.mu.Unlock()

	if active != nil {
		active.Pause()
	}
}
