package media

import (
	"fmt"
	"os"
	"time"

	"github.com/go-audio/wav"
)

// AudioInfo describes a verified WAV file.
type AudioInfo struct {
	Channels   int
	SampleRate int
	BitDepth   int
	Duration   time.Duration
}

// Verify checks that path is a mono 16 kHz 16-bit PCM WAV file with at least
// one sample.
func Verify(path string) (AudioInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return AudioInfo{}, fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return AudioInfo{}, fmt.Errorf("not a valid WAV file")
	}
	info := AudioInfo{
		Channels:   int(dec.NumChans),
		SampleRate: int(dec.SampleRate),
		BitDepth:   int(dec.BitDepth),
	}
	if info.Channels != Channels || info.SampleRate != SampleRate || info.BitDepth != BitDepth {
		return info, fmt.Errorf("unexpected format: %d ch, %d Hz, %d bit", info.Channels, info.SampleRate, info.BitDepth)
	}

	if err := dec.FwdToPCM(); err != nil {
		return info, fmt.Errorf("find PCM data: %w", err)
	}
	pcmBytes := dec.PCMLen()
	if pcmBytes <= 0 {
		return info, fmt.Errorf("audio track is empty")
	}
	bytesPerSecond := int64(info.SampleRate * info.Channels * info.BitDepth / 8)
	info.Duration = time.Duration(pcmBytes * int64(time.Second) / bytesPerSecond)
	return info, nil
}
