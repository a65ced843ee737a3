package speech

import (
	"encoding/binary"
	"errors"
)

// Format describes the PCM layout of a WAV stream.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// decodeWAV walks the RIFF chunks and returns the PCM payload and its
// format.
func decodeWAV(wav []byte) ([]byte, Format, error) {
	var f Format
	if len(wav) < 44 {
		return nil, f, errors.New("wav data too short")
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return nil, f, errors.New("not a valid WAV file")
	}

	gotFmt := false
	pos := 12
	for pos+8 <= len(wav) {
		chunkID := string(wav[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(wav[pos+4 : pos+8]))
		start := pos + 8

		switch chunkID {
		case "fmt ":
			if start+16 > len(wav) {
				return nil, f, errors.New("fmt chunk truncated")
			}
			f.Channels = int(binary.LittleEndian.Uint16(wav[start+2 : start+4]))
			f.SampleRate = int(binary.LittleEndian.Uint32(wav[start+4 : start+8]))
			f.BitsPerSample = int(binary.LittleEndian.Uint16(wav[start+14 : start+16]))
			gotFmt = true

		case "data":
			if !gotFmt {
				return nil, f, errors.New("data chunk before fmt chunk")
			}
			end := start + chunkSize
			// Streaming encoders (espeak --stdout) leave the size at
			// 0 or 0xFFFFFFFF; take everything that is there.
			if chunkSize == 0 || end > len(wav) || end < start {
				end = len(wav)
			}
			return wav[start:end], f, nil
		}

		pos = start + chunkSize
		// Chunks are word-aligned.
		if chunkSize%2 != 0 {
			pos++
		}
		if pos < start {
			break
		}
	}

	return nil, f, errors.New("data chunk not found in WAV")
}
