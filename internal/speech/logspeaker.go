package speech

import (
	"context"
	"log"
)

// LogSpeaker writes announcements to the log instead of the audio device.
// Used when the speech engine is "log" and on machines without audio.
type LogSpeaker struct{}

func (LogSpeaker) Speak(ctx context.Context, text string) error {
	log.Printf("[speech] say %q", text)
	return ctx.Err()
}
