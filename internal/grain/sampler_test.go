package grain

import (
	"math"
	"math/rand/v2"
	"testing"

	"afterglow-engine/internal/analyzer"
	"afterglow-engine/internal/types"
)

const testSampleRate = 44100

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// syntheticGrid 每个窗口 100 个采样，跳长 50
func syntheticGrid(rows int) *analyzer.Grid {
	g := &analyzer.Grid{SampleRate: 1000, Window: 100, Hop: 50, Length: (rows-1)*50 + 100}
	for i := 0; i < rows; i++ {
		g.Rows = append(g.Rows, analyzer.Row{Start: i * 50})
	}
	return g
}

func TestSample_OutOfRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		grainLen int
	}{
		{"zero length", 0},
		{"negative length", -5},
		{"longer than buffer", 1001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := NewSampler(1000, newRand(1)).Sample(tt.grainLen)
			if got.Status != StatusOutOfRange {
				t.Errorf("Sample(%d).Status = %v, want %v", tt.grainLen, got.Status, StatusOutOfRange)
			}
			if got.OK() {
				t.Errorf("Sample(%d).OK() = true, want false", tt.grainLen)
			}
		})
	}
}

func TestSample_RandomWithoutAnalyzer(t *testing.T) {
	t.Parallel()

	s := NewSampler(1000, newRand(2))
	for i := 0; i < 500; i++ {
		got := s.Sample(100)
		if got.Status != StatusRandom {
			t.Fatalf("Sample().Status = %v, want %v", got.Status, StatusRandom)
		}
		if got.Offset < 0 || got.Offset > 900 {
			t.Fatalf("Sample().Offset = %d, want in [0, 900]", got.Offset)
		}
	}

	whole := s.Sample(1000)
	if !whole.OK() || whole.Offset != 0 {
		t.Errorf("Sample(bufLen) = %+v, want OK at offset 0", whole)
	}
}

func TestSample_OffsetZeroIsFound(t *testing.T) {
	t.Parallel()

	grid := syntheticGrid(19)
	mask := make(analyzer.Mask, grid.Len())
	mask[0], mask[1] = true, true

	s := NewSampler(grid.Length, newRand(3), WithMasks(grid, mask, nil))
	for i := 0; i < 20; i++ {
		got := s.Sample(150)
		if got.Status != StatusFound || !got.OK() {
			t.Fatalf("Sample(150) = %+v, want StatusFound", got)
		}
		if got.Offset != 0 {
			t.Fatalf("Sample(150).Offset = %d, want 0", got.Offset)
		}
	}
}

func TestSample_FallbackMask(t *testing.T) {
	t.Parallel()

	grid := syntheticGrid(19)
	primary := make(analyzer.Mask, grid.Len())
	fallback := make(analyzer.Mask, grid.Len())
	fallback[10] = true

	s := NewSampler(grid.Length, newRand(4), WithMasks(grid, primary, fallback))
	for i := 0; i < 50; i++ {
		got := s.Sample(40)
		if got.Status != StatusFoundViaFallback {
			t.Fatalf("Sample().Status = %v, want %v", got.Status, StatusFoundViaFallback)
		}
		if got.Offset < 500 || got.Offset+40 > 600 {
			t.Fatalf("Sample().Offset = %d, want grain inside [500, 600)", got.Offset)
		}
	}

	// 颗粒比回退区间长时退回随机
	if got := s.Sample(200); got.Status != StatusRandom {
		t.Errorf("Sample(200).Status = %v, want %v", got.Status, StatusRandom)
	}
}

func TestSample_Weighting(t *testing.T) {
	t.Parallel()

	grid := syntheticGrid(40)
	mask := make(analyzer.Mask, grid.Len())
	// 短区间 [0, 100)，长区间 [1000, 1950)
	mask[0] = true
	for i := 20; i < 38; i++ {
		mask[i] = true
	}

	const draws = 2000
	countShort := func(w Weighting) int {
		s := NewSampler(grid.Length, newRand(5), WithMasks(grid, mask, nil), WithWeighting(w))
		short := 0
		for i := 0; i < draws; i++ {
			if s.Sample(10).Offset < 100 {
				short++
			}
		}
		return short
	}

	if got := countShort(WeightByLength); got > draws/5 {
		t.Errorf("WeightByLength picked the short run %d/%d times, want about 10%%", got, draws)
	}
	if got := countShort(WeightUniform); got < draws*2/5 || got > draws*3/5 {
		t.Errorf("WeightUniform picked the short run %d/%d times, want about 50%%", got, draws)
	}
}

func TestSample_Deterministic(t *testing.T) {
	t.Parallel()

	a := NewSampler(10000, newRand(42))
	b := NewSampler(10000, newRand(42))
	for i := 0; i < 100; i++ {
		if pa, pb := a.Sample(256), b.Sample(256); pa != pb {
			t.Fatalf("draw %d: %+v != %+v", i, pa, pb)
		}
	}
}

func TestSample_ToneScenario(t *testing.T) {
	t.Parallel()

	buf := make([]float64, 30*testSampleRate)
	toneStart := 10 * testSampleRate
	for i := 0; i < 6*testSampleRate; i++ {
		buf[toneStart+i] = 0.1 * math.Sin(2*math.Pi*440*float64(i)/testSampleRate)
	}

	grid, err := analyzer.Analyze(buf, testSampleRate, 1.0, 0.5)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	th := types.DefaultThresholds()
	mask, err := grid.StableMask(th)
	if err != nil {
		t.Fatalf("StableMask() error = %v", err)
	}
	runs := analyzer.Runs(mask)
	if len(runs) != 1 {
		t.Fatalf("Runs() = %v, want one run", runs)
	}
	runStart, _ := grid.Span(runs[0].Start)
	_, runEnd := grid.Span(runs[0].End - 1)

	grainLen := testSampleRate / 10
	s := NewSampler(len(buf), newRand(6), WithMasks(grid, mask, nil))
	for i := 0; i < 100; i++ {
		got := s.Sample(grainLen)
		if got.Status != StatusFound {
			t.Fatalf("Sample().Status = %v, want %v", got.Status, StatusFound)
		}
		if got.Offset < runStart || got.Offset+grainLen > runEnd {
			t.Fatalf("Sample().Offset = %d, want grain inside run [%d, %d)", got.Offset, runStart, runEnd)
		}
	}
}

func TestStatus_String(t *testing.T) {
	t.Parallel()

	tests := map[Status]string{
		StatusFound:            "found",
		StatusFoundViaFallback: "found_via_fallback",
		StatusRandom:           "random",
		StatusOutOfRange:       "out_of_range",
		StatusLoudest:          "loudest",
		Status(99):             "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}
