package synth

import (
	"errors"
	"math"
	"testing"

	"afterglow-engine/internal/analyzer"
	"afterglow-engine/internal/rng"
	"afterglow-engine/internal/types"
)

func TestSynthesizeCloud_Deterministic(t *testing.T) {
	t.Parallel()

	src := texture(3)
	cfg := smallCloud(int64p(2024))

	first, err := SynthesizeCloud(src, testSampleRate, cfg)
	if err != nil {
		t.Fatalf("SynthesizeCloud() error = %v", err)
	}
	second, err := NewEngine(rng.New(99)).SynthesizeCloud(src, testSampleRate, cfg)
	if err != nil {
		t.Fatalf("SynthesizeCloud() error = %v", err)
	}

	if len(first.Samples) != len(second.Samples) {
		t.Fatalf("len = %d and %d, want equal", len(first.Samples), len(second.Samples))
	}
	for i := range first.Samples {
		if math.Float64bits(first.Samples[i]) != math.Float64bits(second.Samples[i]) {
			t.Fatalf("sample %d differs: %v vs %v", i, first.Samples[i], second.Samples[i])
		}
	}
}

func TestSynthesizeCloud_DifferentSeedsDiffer(t *testing.T) {
	t.Parallel()

	src := texture(3)
	a, err := SynthesizeCloud(src, testSampleRate, smallCloud(int64p(1)))
	if err != nil {
		t.Fatalf("SynthesizeCloud() error = %v", err)
	}
	b, err := SynthesizeCloud(src, testSampleRate, smallCloud(int64p(2)))
	if err != nil {
		t.Fatalf("SynthesizeCloud() error = %v", err)
	}

	same := true
	for i := range a.Samples {
		if a.Samples[i] != b.Samples[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("SynthesizeCloud() with different seeds produced identical output")
	}
}

func TestSynthesizeCloud_SeedDoesNotDisturbEngineStream(t *testing.T) {
	t.Parallel()

	reference := rng.New(5).Rand()
	want := []uint64{reference.Uint64(), reference.Uint64(), reference.Uint64()}

	e := NewEngine(rng.New(5))
	if _, err := e.SynthesizeCloud(texture(2), testSampleRate, smallCloud(int64p(77))); err != nil {
		t.Fatalf("SynthesizeCloud() error = %v", err)
	}

	r := e.stream.Rand()
	for i, w := range want {
		if got := r.Uint64(); got != w {
			t.Errorf("engine stream draw %d = %d, want %d", i, got, w)
		}
	}
}

func TestSynthesizeCloud_SilentInput(t *testing.T) {
	t.Parallel()

	cfg := smallCloud(int64p(1))
	out, err := SynthesizeCloud(make([]float64, 2*testSampleRate), testSampleRate, cfg)
	if err != nil {
		t.Fatalf("SynthesizeCloud(zeros) error = %v", err)
	}
	if !out.Silent {
		t.Error("SynthesizeCloud(zeros).Silent = false, want true")
	}
	wantLen := int(cfg.DurationSec * testSampleRate)
	if len(out.Samples) != wantLen {
		t.Errorf("len(Samples) = %d, want %d", len(out.Samples), wantLen)
	}
	if hasNonFinite(out.Samples) {
		t.Error("SynthesizeCloud(zeros) produced NaN/Inf")
	}
	if Peak(out.Samples) != 0 {
		t.Errorf("Peak() = %v, want 0", Peak(out.Samples))
	}
	if math.IsNaN(out.Quality.RMSDB) || math.IsNaN(out.Quality.CrestFactor) {
		t.Errorf("Quality = %+v, want finite values", out.Quality)
	}
}

func TestSynthesizeCloud_PeakAtTarget(t *testing.T) {
	t.Parallel()

	cfg := smallCloud(int64p(3))
	out, err := SynthesizeCloud(texture(3), testSampleRate, cfg)
	if err != nil {
		t.Fatalf("SynthesizeCloud() error = %v", err)
	}
	if out.Silent {
		t.Fatal("SynthesizeCloud().Silent = true, want false")
	}
	want := DBToLinear(cfg.TargetPeakDBFS)
	if got := Peak(out.Samples); math.Abs(got-want) > 1e-9 {
		t.Errorf("Peak() = %v, want %v", got, want)
	}
	if out.Stats.Grains != cfg.GrainCount {
		t.Errorf("Stats.Grains = %d, want %d", out.Stats.Grains, cfg.GrainCount)
	}
	if out.Stats.Stability == nil {
		t.Error("Stats.Stability = nil, want analysis summary")
	}
}

func TestSynthesizeCloud_AnalysisDisabled(t *testing.T) {
	t.Parallel()

	cfg := smallCloud(int64p(4))
	cfg.Analysis.Enabled = false
	out, err := SynthesizeCloud(texture(2), testSampleRate, cfg)
	if err != nil {
		t.Fatalf("SynthesizeCloud() error = %v", err)
	}
	if out.Stats.Stability != nil {
		t.Error("Stats.Stability != nil with analysis disabled")
	}
	if out.Stats.Random != out.Stats.Grains {
		t.Errorf("Stats.Random = %d, want all %d grains random", out.Stats.Random, out.Stats.Grains)
	}
}

func TestSynthesizeCloud_UnscoredFallback(t *testing.T) {
	t.Parallel()

	// 满幅方波，每个颗粒都因削波被拒
	src := make([]float64, 2*testSampleRate)
	for i := range src {
		src[i] = 1
		if (i/100)%2 == 1 {
			src[i] = -1
		}
	}

	cfg := smallCloud(int64p(5))
	cfg.MaxAttempts = 2
	out, err := SynthesizeCloud(src, testSampleRate, cfg)
	if err != nil {
		t.Fatalf("SynthesizeCloud() error = %v", err)
	}
	if !out.Stats.Unscored {
		t.Error("Stats.Unscored = false, want true")
	}
	if out.Stats.Rejected != cfg.GrainCount*cfg.MaxAttempts {
		t.Errorf("Stats.Rejected = %d, want %d", out.Stats.Rejected, cfg.GrainCount*cfg.MaxAttempts)
	}
	if out.Silent {
		t.Error("SynthesizeCloud().Silent = true, want a cloud from unscored grains")
	}
}

func TestSynthesizeCloud_InvalidConfig(t *testing.T) {
	t.Parallel()

	base := smallCloud(nil)
	invalid := []struct {
		name string
		edit func(c *types.CloudConfig)
	}{
		{"min above max", func(c *types.CloudConfig) { c.GrainLenMinMs, c.GrainLenMaxMs = 200, 100 }},
		{"zero grain length", func(c *types.CloudConfig) { c.GrainLenMinMs = 0 }},
		{"overlap of one", func(c *types.CloudConfig) { c.OverlapRatio = 1 }},
		{"negative overlap", func(c *types.CloudConfig) { c.OverlapRatio = -0.1 }},
		{"no grains", func(c *types.CloudConfig) { c.GrainCount = 0 }},
		{"zero duration", func(c *types.CloudConfig) { c.DurationSec = 0 }},
		{"inverted pitch range", func(c *types.CloudConfig) { c.PitchMinSemitones, c.PitchMaxSemitones = 5, -5 }},
		{"zero attempts", func(c *types.CloudConfig) { c.MaxAttempts = 0 }},
		{"grain longer than buffer", func(c *types.CloudConfig) { c.GrainLenMinMs, c.GrainLenMaxMs = 5000, 6000 }},
	}

	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := base
			tt.edit(&cfg)
			_, err := SynthesizeCloud(texture(1), testSampleRate, cfg)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("SynthesizeCloud() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestSynthesizeCloud_NonFiniteInput(t *testing.T) {
	t.Parallel()

	src := texture(1)
	src[100] = math.NaN()
	if _, err := SynthesizeCloud(src, testSampleRate, smallCloud(nil)); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("SynthesizeCloud(NaN) error = %v, want ErrInvalidInput", err)
	}
}

func TestOverlapAdd_FillsBuffer(t *testing.T) {
	t.Parallel()

	grains := [][]float64{{1, 1, 1, 1}, {2, 2, 2, 2}}
	got := overlapAdd(grains, 2, 9)
	want := []float64{1, 1, 3, 3, 3, 3, 3, 3, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("overlapAdd() = %v, want %v", got, want)
		}
	}
}

func TestSynthesizeCloudFrom_SharesAnalysis(t *testing.T) {
	t.Parallel()

	src := texture(3)
	a, err := analyzer.New(src, testSampleRate)
	if err != nil {
		t.Fatalf("analyzer.New() error = %v", err)
	}

	e := NewEngine(rng.New(1))
	var outs []*Output
	for _, seed := range []int64{7, 8} {
		out, err := e.SynthesizeCloudFrom(a, smallCloud(int64p(seed)))
		if err != nil {
			t.Fatalf("SynthesizeCloudFrom(seed=%d) error = %v", seed, err)
		}
		outs = append(outs, out)
	}

	if got := a.Transforms(); got != 1 {
		t.Errorf("Transforms() = %d after two clouds, want 1", got)
	}
	if outs[0].Stats.Stability == nil || outs[1].Stats.Stability == nil {
		t.Fatal("Stats.Stability = nil, want analysis summary on both clouds")
	}
	if *outs[0].Stats.Stability != *outs[1].Stats.Stability {
		t.Errorf("Stability = %+v and %+v, want the same cached analysis", *outs[0].Stats.Stability, *outs[1].Stats.Stability)
	}

	// 与独立分析的结果逐采样一致
	want, err := SynthesizeCloud(src, testSampleRate, smallCloud(int64p(8)))
	if err != nil {
		t.Fatalf("SynthesizeCloud() error = %v", err)
	}
	for i := range want.Samples {
		if math.Float64bits(want.Samples[i]) != math.Float64bits(outs[1].Samples[i]) {
			t.Fatalf("sample %d = %v, want %v", i, outs[1].Samples[i], want.Samples[i])
		}
	}
}
