// Package speech turns announcement text into sound: a synthesizer
// produces WAV audio, a Player sends it to the audio device, and Voice
// ties them together behind a flush-then-speak Speak call.
package speech

import (
	"context"
	"fmt"
	"sync"
)

// Synthesizer converts text into WAV audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
	Voice() string
	Format() Format
}

// Output plays WAV audio. Play blocks until playback ends; Stop cuts the
// current playback short. *Player satisfies it.
type Output interface {
	Play(ctx context.Context, wav []byte) error
	Stop()
}

// Voice speaks text through a synthesizer and an audio output. A new
// Speak call stops whatever is still playing, so utterances never queue.
type Voice struct {
	tts   Synthesizer
	out   Output
	cache *AudioCache

	mu sync.Mutex // held for the duration of one utterance
}

// NewVoice creates a Voice. cacheSize <= 0 uses the cache default.
func NewVoice(tts Synthesizer, out Output, cacheSize int) *Voice {
	return &Voice{
		tts:   tts,
		out:   out,
		cache: NewAudioCache(tts.Voice(), cacheSize),
	}
}

// Speak flushes any active utterance, then synthesizes and plays text.
// It returns when playback has finished.
func (v *Voice) Speak(ctx context.Context, text string) error {
	v.out.Stop()
	v.mu.Lock()
	defer v.mu.Unlock()

	audio, ok := v.cache.Get(text)
	if !ok {
		var err error
		audio, err = v.tts.Synthesize(ctx, text)
		if err != nil {
			return fmt.Errorf("speech: synthesize %q: %w", text, err)
		}
		v.cache.Put(text, audio)
	}
	if err := v.out.Play(ctx, audio); err != nil {
		return fmt.Errorf("speech: play: %w", err)
	}
	return nil
}

// Cache returns the audio cache. Useful for stats/logging.
func (v *Voice) Cache() *AudioCache { return v.cache }
