package synth

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"afterglow-engine/internal/analyzer"
	"afterglow-engine/internal/grain"
	"afterglow-engine/internal/rng"
	"afterglow-engine/internal/types"

	"github.com/mjibson/go-dsp/window"
)

// Stats 一次合成的过程统计
type Stats struct {
	Grains       int                     `json:"grains"`
	Attempts     int                     `json:"attempts"`
	Rejected     int                     `json:"rejected"`
	Unscored     bool                    `json:"unscored,omitempty"` // 没有颗粒通过评分，改为不评分取样
	PitchShifted int                     `json:"pitchShifted"`
	Found        int                     `json:"found"`
	Fallback     int                     `json:"fallback"`
	Random       int                     `json:"random"`
	Stability    *types.StabilitySummary `json:"stability,omitempty"`
}

// Seam 循环接缝信息
type Seam struct {
	Correlation float64 `json:"correlation"` // 接缝处的归一化互相关
	Trim        int     `json:"trim"`        // 从结尾裁掉的采样数
	Crossfade   int     `json:"crossfade"`   // 交叉淡化长度
}

// Segment 循环 pad 在源音频中的位置
type Segment struct {
	Offset int    `json:"offset"`
	Length int    `json:"length"`
	Status string `json:"status"`
}

// Output 合成结果
type Output struct {
	Samples    []float64
	SampleRate int
	Silent     bool
	Quality    types.Quality
	Stats      Stats
	Seam       *Seam
	Segment    *Segment
}

// Duration 返回时长（秒）
func (o *Output) Duration() float64 {
	if o.SampleRate <= 0 {
		return 0
	}
	return float64(len(o.Samples)) / float64(o.SampleRate)
}

// Logf 诊断输出
type Logf func(format string, args ...any)

// Engine 颗粒云合成引擎
//
// 每个引擎持有独立的随机数流，不是并发安全的。
type Engine struct {
	stream *rng.Stream
	logf   Logf
}

// EngineOption 引擎选项
type EngineOption func(*Engine)

// WithLogger 设置诊断输出
func WithLogger(logf Logf) EngineOption {
	return func(e *Engine) {
		if logf != nil {
			e.logf = logf
		}
	}
}

// NewEngine 创建合成引擎，stream 为 nil 时使用随机种子
func NewEngine(stream *rng.Stream, opts ...EngineOption) *Engine {
	if stream == nil {
		stream = rng.NewUnseeded()
	}
	e := &Engine{
		stream: stream,
		logf:   func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SynthesizeCloud 使用新建的引擎合成颗粒云
func SynthesizeCloud(samples []float64, sampleRate int, cfg types.CloudConfig) (*Output, error) {
	return NewEngine(nil).SynthesizeCloud(samples, sampleRate, cfg)
}

func validateCloud(sampleRate int, cfg types.CloudConfig) error {
	var errs []error
	if sampleRate <= 0 {
		errs = append(errs, fmt.Errorf("采样率必须为正数: %d", sampleRate))
	}
	if cfg.GrainLenMinMs <= 0 || cfg.GrainLenMinMs > cfg.GrainLenMaxMs {
		errs = append(errs, fmt.Errorf("颗粒长度区间不合法: %.1f-%.1f ms", cfg.GrainLenMinMs, cfg.GrainLenMaxMs))
	}
	if cfg.GrainCount < 1 {
		errs = append(errs, fmt.Errorf("颗粒数必须 >= 1: %d", cfg.GrainCount))
	}
	if cfg.DurationSec <= 0 {
		errs = append(errs, fmt.Errorf("输出时长必须为正数: %.2f", cfg.DurationSec))
	}
	if cfg.OverlapRatio < 0 || cfg.OverlapRatio >= 1 {
		errs = append(errs, fmt.Errorf("重叠比例必须在 [0,1) 内: %.2f", cfg.OverlapRatio))
	}
	if cfg.PitchMinSemitones > cfg.PitchMaxSemitones {
		errs = append(errs, fmt.Errorf("移调区间颠倒: %.1f > %.1f", cfg.PitchMinSemitones, cfg.PitchMaxSemitones))
	}
	if cfg.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("最大尝试次数必须 >= 1: %d", cfg.MaxAttempts))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func msToSamples(ms float64, sampleRate int) int {
	return int(math.Round(ms * float64(sampleRate) / 1000))
}

// SynthesizeCloud 从音频中取颗粒，移调、加窗后重叠相加成颗粒云
//
// 设置了 cfg.Seed 时所有随机选择只由种子决定，调用结束后引擎自己的随机数流恢复原状。
func (e *Engine) SynthesizeCloud(samples []float64, sampleRate int, cfg types.CloudConfig) (*Output, error) {
	if err := validateCloud(sampleRate, cfg); err != nil {
		return nil, err
	}
	a, err := analyzer.New(samples, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return e.SynthesizeCloudFrom(a, cfg)
}

// SynthesizeCloudFrom 与 SynthesizeCloud 相同，但复用 a 中已缓存的分析结果
//
// 同一段音频生成多个颗粒云时共用一个分析器，STFT 和指标网格只计算一次。
func (e *Engine) SynthesizeCloudFrom(a *analyzer.Analyzer, cfg types.CloudConfig) (*Output, error) {
	samples, sampleRate := a.Samples(), a.SampleRate()
	if err := validateCloud(sampleRate, cfg); err != nil {
		return nil, err
	}
	if err := checkFinite(samples); err != nil {
		return nil, err
	}

	minLen := max(1, msToSamples(cfg.GrainLenMinMs, sampleRate))
	maxLen := max(minLen, msToSamples(cfg.GrainLenMaxMs, sampleRate))
	if minLen > len(samples) {
		return nil, fmt.Errorf("最短颗粒 %d 个采样超过音频长度 %d: %w", minLen, len(samples), ErrInvalidConfig)
	}
	outLen := max(1, int(math.Round(cfg.DurationSec*float64(sampleRate))))

	if Peak(samples) < silentPeak {
		e.logf("输入为静音，跳过合成")
		return silentOutput(outLen, sampleRate), nil
	}

	var out *Output
	err := e.stream.Scoped(cfg.Seed, func(r *rand.Rand) error {
		var err error
		out, err = e.cloud(r, a, cfg, minLen, maxLen, outLen)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func silentOutput(n, sampleRate int) *Output {
	samples := make([]float64, n)
	return &Output{
		Samples:    samples,
		SampleRate: sampleRate,
		Silent:     true,
		Quality:    Measure(samples, sampleRate),
	}
}

func (e *Engine) cloud(r *rand.Rand, a *analyzer.Analyzer, cfg types.CloudConfig, minLen, maxLen, outLen int) (*Output, error) {
	samples, sampleRate := a.Samples(), a.SampleRate()
	stats := Stats{}

	sampler, err := e.newSampler(r, a, cfg.Analysis, &stats)
	if err != nil {
		return nil, err
	}

	scorer := grain.DefaultScoreConfig()
	scorer.Threshold = cfg.QualityThreshold

	draw := func() ([]float64, grain.Pick) {
		length := minLen + r.IntN(maxLen-minLen+1)
		pick := sampler.Sample(min(length, len(samples)))
		seg := make([]float64, length)
		if pick.OK() {
			copy(seg, samples[pick.Offset:])
		}
		return seg, pick
	}

	var grains [][]float64
	budget := cfg.GrainCount * cfg.MaxAttempts
	for len(grains) < cfg.GrainCount && stats.Attempts < budget {
		stats.Attempts++
		seg, pick := draw()
		if !scorer.Score(seg).Accepted {
			stats.Rejected++
			continue
		}
		stats.count(pick.Status)
		grains = append(grains, seg)
	}

	if len(grains) == 0 {
		e.logf("%d 次尝试没有颗粒通过评分，改为不评分取样", stats.Attempts)
		stats.Unscored = true
		for len(grains) < cfg.GrainCount {
			seg, pick := draw()
			stats.count(pick.Status)
			grains = append(grains, seg)
		}
	}
	stats.Grains = len(grains)

	for i, g := range grains {
		semitones := cfg.PitchMinSemitones
		if cfg.PitchMaxSemitones > cfg.PitchMinSemitones {
			semitones += r.Float64() * (cfg.PitchMaxSemitones - cfg.PitchMinSemitones)
		}
		if semitones != 0 && len(g) >= cfg.MinPitchShiftSamples {
			g = PitchShift(g, sampleRate, semitones)
			stats.PitchShifted++
		}
		window.Apply(g, window.Hann)
		grains[i] = g
	}

	avgLen := float64(minLen+maxLen) / 2
	hop := max(1, int(avgLen*(1-cfg.OverlapRatio)))
	buf := overlapAdd(grains, hop, outLen)

	if cfg.LowpassHz > 0 {
		buf = Lowpass(buf, cfg.LowpassHz, sampleRate)
	}

	e.logf("颗粒 %d（尝试 %d，拒绝 %d，移调 %d），跳长 %d", stats.Grains, stats.Attempts, stats.Rejected, stats.PitchShifted, hop)

	normalized, err := Normalize(buf, cfg.TargetPeakDBFS)
	if errors.Is(err, ErrSilent) {
		out := silentOutput(outLen, sampleRate)
		out.Stats = stats
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	return &Output{
		Samples:    normalized,
		SampleRate: sampleRate,
		Quality:    Measure(normalized, sampleRate),
		Stats:      stats,
	}, nil
}

// newSampler 预分析关闭时返回纯随机取样器
func (e *Engine) newSampler(r *rand.Rand, a *analyzer.Analyzer, cfg types.AnalysisConfig, stats *Stats) (*grain.Sampler, error) {
	if !cfg.Enabled {
		return grain.NewSampler(a.Len(), r), nil
	}

	st, err := a.Stability(cfg)
	if err != nil {
		return nil, fmt.Errorf("稳定性分析失败: %w", err)
	}
	summary := st.Summary
	stats.Stability = &summary
	e.logf("分析窗口 %d，稳定窗口 %d，稳定区间 %d，回退 %v", summary.Windows, summary.StableWindows, summary.StableRuns, summary.FallbackUsed)

	return grain.NewSampler(a.Len(), r, grain.WithMasks(st.Grid, st.Primary, st.Fallback)), nil
}

func (s *Stats) count(status grain.Status) {
	switch status {
	case grain.StatusFound:
		s.Found++
	case grain.StatusFoundViaFallback:
		s.Fallback++
	case grain.StatusRandom:
		s.Random++
	}
}

// overlapAdd 按固定跳长循环放置颗粒直到填满 n 个采样
func overlapAdd(grains [][]float64, hop, n int) []float64 {
	out := make([]float64, n)
	if len(grains) == 0 {
		return out
	}
	for pos, i := 0, 0; pos < n; pos, i = pos+hop, i+1 {
		g := grains[i%len(grains)]
		end := min(pos+len(g), n)
		for j := pos; j < end; j++ {
			out[j] += g[j-pos]
		}
	}
	return out
}
