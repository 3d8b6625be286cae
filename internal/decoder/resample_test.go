package decoder

import (
	"errors"
	"math"
	"testing"
)

func TestResample_Length(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to, n, want int
	}{
		{48000, 44100, 48000, 44100},
		{22050, 44100, 22050, 44100},
		{44100, 44100, 1000, 1000},
		{44100, 22050, 1001, 501},
	}

	for _, tt := range tests {
		got, err := Resample(make([]float64, tt.n), tt.from, tt.to)
		if err != nil {
			t.Fatalf("Resample(%d -> %d) error = %v", tt.from, tt.to, err)
		}
		if len(got) != tt.want {
			t.Errorf("len(Resample(%d -> %d)) = %d, want %d", tt.from, tt.to, len(got), tt.want)
		}
	}
}

func TestResample_PreservesTone(t *testing.T) {
	t.Parallel()

	src := sine(48000, 48000, 440, 0.5)
	got, err := Resample(src, 48000, 44100)
	if err != nil {
		t.Fatalf("Resample() error = %v", err)
	}
	want := sine(len(got), 44100, 440, 0.5)

	// 一阶低通带来少量相移和衰减，只比较幅度
	peak := 0.0
	for _, v := range got[1000 : len(got)-1000] {
		peak = math.Max(peak, math.Abs(v))
	}
	if math.Abs(peak-0.5) > 0.02 {
		t.Errorf("peak = %.4f, want ≈ 0.5", peak)
	}

	up, err := Resample(sine(22050, 22050, 440, 0.5), 22050, 44100)
	if err != nil {
		t.Fatalf("Resample() error = %v", err)
	}
	for i := 100; i < len(up)-100; i++ {
		if math.Abs(up[i]-want[i]) > 1e-3 {
			t.Fatalf("upsampled[%d] = %v, want %v", i, up[i], want[i])
		}
	}
}

func TestResample_InvalidRate(t *testing.T) {
	t.Parallel()

	if _, err := Resample([]float64{1}, 0, 44100); !errors.Is(err, ErrInvalidSampleRate) {
		t.Errorf("Resample(0 Hz) error = %v, want ErrInvalidSampleRate", err)
	}
}

func TestCubicInterpolate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		y0, y1, y2, y3, x, want float64
	}{
		{0, 1, 2, 3, 0, 1},
		{0, 1, 2, 3, 1, 2},
		{0, 1, 2, 3, 0.5, 1.5},
		{5, 5, 5, 5, 0.3, 5},
	}

	for _, tt := range tests {
		if got := cubicInterpolate(tt.y0, tt.y1, tt.y2, tt.y3, tt.x); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("cubicInterpolate(%v, %v, %v, %v, %v) = %v, want %v",
				tt.y0, tt.y1, tt.y2, tt.y3, tt.x, got, tt.want)
		}
	}
}
