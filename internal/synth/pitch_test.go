package synth

import (
	"math"
	"testing"
)

func TestPitchShift_Length(t *testing.T) {
	t.Parallel()

	tests := []struct {
		semitones float64
		n         int
		want      int
	}{
		{12, 4410, 2205},
		{-12, 4410, 8820},
		{7, 4096, int(math.Round(4096 / math.Pow(2, 7.0/12)))},
		{-5, 3001, int(math.Round(3001 / math.Pow(2, -5.0/12)))},
		{0, 4410, 4410},
	}

	for _, tt := range tests {
		got := PitchShift(sine(tt.n, 441, 0.5), testSampleRate, tt.semitones)
		if len(got) != tt.want {
			t.Errorf("len(PitchShift(n=%d, %+.0f)) = %d, want %d", tt.n, tt.semitones, len(got), tt.want)
		}
	}
}

func TestPitchShift_Frequency(t *testing.T) {
	t.Parallel()

	tests := []struct {
		semitones float64
		want      float64
	}{
		{12, 882},
		{-12, 220.5},
		{7, 441 * math.Pow(2, 7.0/12)},
	}

	for _, tt := range tests {
		got := zeroCrossingFreq(PitchShift(sine(8800, 441, 0.5), testSampleRate, tt.semitones))
		if math.Abs(got-tt.want)/tt.want > 0.03 {
			t.Errorf("PitchShift(%+.0f) frequency = %.1f Hz, want %.1f Hz", tt.semitones, got, tt.want)
		}
	}
}

func TestPitchShift_AntiAlias(t *testing.T) {
	t.Parallel()

	low := PitchShift(sine(8820, 1000, 0.5), testSampleRate, 12)
	high := PitchShift(sine(8820, 15000, 0.5), testSampleRate, 12)

	if got := RMS(low); got < 0.3 {
		t.Errorf("RMS(shifted 1kHz) = %.3f, want passband preserved", got)
	}
	if ratio := RMS(high) / RMS(low); ratio > 0.05 {
		t.Errorf("RMS(shifted 15kHz)/RMS(shifted 1kHz) = %.4f, want < 0.05", ratio)
	}
}

func TestPitchShift_DoesNotModifyInput(t *testing.T) {
	t.Parallel()

	in := sine(4096, 441, 0.5)
	orig := append([]float64(nil), in...)
	PitchShift(in, testSampleRate, 5)
	for i := range in {
		if in[i] != orig[i] {
			t.Fatalf("PitchShift() modified input at %d", i)
		}
	}
}

func TestLowpass(t *testing.T) {
	t.Parallel()

	const cutoff = 8820
	n := testSampleRate
	mid := func(x []float64) []float64 { return x[n/4 : 3*n/4] }

	pass := Lowpass(sine(n, 1000, 0.5), cutoff, testSampleRate)
	if got := RMS(mid(pass)); math.Abs(got-0.5/math.Sqrt2) > 0.02 {
		t.Errorf("RMS(Lowpass(1kHz)) = %.4f, want %.4f", got, 0.5/math.Sqrt2)
	}

	stop := Lowpass(sine(n, 15000, 0.5), cutoff, testSampleRate)
	if got := RMS(mid(stop)); got > 0.005 {
		t.Errorf("RMS(Lowpass(15kHz)) = %.5f, want < 0.005", got)
	}

	same := Lowpass([]float64{1, 2, 3}, testSampleRate, testSampleRate)
	if same[0] != 1 || same[1] != 2 || same[2] != 3 {
		t.Errorf("Lowpass(cutoff >= Nyquist) = %v, want unchanged", same)
	}
}
