package decoder

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeInterleaved 用给定声道数和位深度写一个全零 WAV
func writeInterleaved(t *testing.T, path string, frames, sampleRate, channels, bitDepth int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("os.Create() error = %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           make([]int, frames*channels),
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("Encoder.Write() error = %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Encoder.Close() error = %v", err)
	}
}

func TestWAVDecoder_Duration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		frames     int
		sampleRate int
		channels   int
		bitDepth   int
		want       time.Duration
	}{
		{"mono 16 bit", 44100, 44100, 1, 16, time.Second},
		{"stereo 16 bit", 22050, 44100, 2, 16, 500 * time.Millisecond},
		{"stereo 24 bit", 48000, 48000, 2, 24, time.Second},
		{"mono 24 bit quarter", 12000, 48000, 1, 24, 250 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "zeros.wav")
			writeInterleaved(t, path, tt.frames, tt.sampleRate, tt.channels, tt.bitDepth)

			file, err := (&WAVDecoder{}).Decode(path)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			defer file.Close()

			if got := file.GetDuration(); got != tt.want {
				t.Errorf("GetDuration() = %v, want %v", got, tt.want)
			}
			if got := file.GetMetadata().Duration; got != tt.want.String() {
				t.Errorf("GetMetadata().Duration = %s, want %s", got, tt.want)
			}

			// 时长读取之后仍能取到全部采样
			samples, err := file.GetSamples()
			if err != nil {
				t.Fatalf("GetSamples() error = %v", err)
			}
			if len(samples) != tt.frames*tt.channels {
				t.Errorf("len(GetSamples()) = %d, want %d", len(samples), tt.frames*tt.channels)
			}
		})
	}
}
