package synth

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"afterglow-engine/internal/analyzer"
	"afterglow-engine/internal/grain"
	"afterglow-engine/internal/types"

	"github.com/mjibson/go-dsp/dsputils"
	"github.com/mjibson/go-dsp/fft"
)

const (
	loopSearchMinSec = 0.5 // 搜索区至少覆盖的时长
	loopSearchFactor = 4   // 搜索区至少为交叉淡化长度的倍数
	loopMaxTrimDiv   = 4   // 裁剪量不超过总长的 1/4
	nccMinEnergy     = 1e-12
)

// TrimLoop 寻找最佳接缝并做等功率交叉淡化，得到可无缝循环的音频
//
// 在结尾 min(len/2, max(4×xf, 0.5s), len/4+xf) 的范围内寻找与开头 xf 个采样归一化互相关最大的位置
// （相同时取最靠后的），裁掉其后的部分，再把最后 xf 个采样以 √t / √(1−t) 曲线叠到开头。
// 搜索范围保证裁剪量不超过 len/4，报告的相关系数就是实际接缝处的值。
// xf 小于 1 时原样返回副本，超过一半长度时截到一半。
func TrimLoop(samples []float64, sampleRate int, crossfadeMs float64) (*Output, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("采样率必须为正数: %d: %w", sampleRate, ErrInvalidConfig)
	}
	if crossfadeMs < 0 || math.IsNaN(crossfadeMs) {
		return nil, fmt.Errorf("交叉淡化时长不能为负: %.1f ms: %w", crossfadeMs, ErrInvalidConfig)
	}
	if err := checkFinite(samples); err != nil {
		return nil, err
	}

	n := len(samples)
	xf := min(int(crossfadeMs*float64(sampleRate)/1000), n/2)
	if xf < 1 {
		out := make([]float64, n)
		copy(out, samples)
		return &Output{
			Samples:    out,
			SampleRate: sampleRate,
			Quality:    Measure(out, sampleRate),
		}, nil
	}

	search := min(n/2, max(loopSearchFactor*xf, int(loopSearchMinSec*float64(sampleRate))))
	search = min(search, n/loopMaxTrimDiv+xf)
	trim, corr := 0, 0.0
	if search >= xf {
		var lag int
		lag, corr = bestSeam(samples[:xf], samples[n-search:])
		trim = search - (lag + xf)
	}

	trimmed := samples[:n-trim]
	out := crossfadeLoop(trimmed, xf)

	return &Output{
		Samples:    out,
		SampleRate: sampleRate,
		Quality:    Measure(out, sampleRate),
		Seam: &Seam{
			Correlation: corr,
			Trim:        trim,
			Crossfade:   xf,
		},
	}, nil
}

// SynthesizeLoop 裁剪循环点后归一化；静音输入返回 Silent 结果
func SynthesizeLoop(samples []float64, sampleRate int, cfg types.LoopConfig) (*Output, error) {
	out, err := TrimLoop(samples, sampleRate, cfg.CrossfadeMs)
	if err != nil {
		return nil, err
	}

	normalized, err := Normalize(out.Samples, cfg.TargetPeakDBFS)
	if errors.Is(err, ErrSilent) {
		silent := silentOutput(len(out.Samples), sampleRate)
		silent.Seam = out.Seam
		return silent, nil
	}
	if err != nil {
		return nil, err
	}

	out.Samples = normalized
	out.Quality = Measure(normalized, sampleRate)
	return out, nil
}

// 不经过 grain.PickPad 时 Segment.Status 的取值
const (
	segmentWhole = "whole" // 使用整段音频
	segmentHead  = "head"  // 预分析关闭，从开头截取
)

// SynthesizePad 先在分析器的稳定区间中截取 cfg.PadSec 长的片段，再裁剪循环点并归一化
//
// 片段选择见 grain.PickPad；预分析关闭时从开头截取。PadSec 为 0 或不短于音频时使用整段。
func SynthesizePad(a *analyzer.Analyzer, cfg types.LoopConfig, analysis types.AnalysisConfig) (*Output, error) {
	if cfg.PadSec < 0 || math.IsNaN(cfg.PadSec) {
		return nil, fmt.Errorf("pad 长度不能为负: %.2f s: %w", cfg.PadSec, ErrInvalidConfig)
	}
	samples, sampleRate := a.Samples(), a.SampleRate()

	padLen := int(math.Round(cfg.PadSec * float64(sampleRate)))
	var seg Segment
	var stability *types.StabilitySummary

	switch {
	case padLen <= 0 || padLen >= len(samples):
		seg = Segment{Offset: 0, Length: len(samples), Status: segmentWhole}
	case analysis.Enabled:
		st, err := a.Stability(analysis)
		if err != nil {
			return nil, fmt.Errorf("稳定性分析失败: %w", err)
		}
		summary := st.Summary
		stability = &summary

		pick := grain.PickPad(st.Grid, st.Primary, st.Fallback, padLen)
		seg = Segment{Offset: pick.Offset, Length: padLen, Status: pick.Status.String()}
	default:
		seg = Segment{Offset: 0, Length: padLen, Status: segmentHead}
	}

	out, err := SynthesizeLoop(samples[seg.Offset:seg.Offset+seg.Length], sampleRate, cfg)
	if err != nil {
		return nil, err
	}
	out.Segment = &seg
	out.Stats.Stability = stability
	return out, nil
}

// crossfadeLoop 把最后 xf 个采样叠到开头并去掉它们，结尾自然接回开头
func crossfadeLoop(x []float64, xf int) []float64 {
	n := len(x) - xf
	out := make([]float64, n)
	copy(out, x[:n])

	tail := x[n:]
	for i := 0; i < xf; i++ {
		t := 1.0
		if xf > 1 {
			t = float64(i) / float64(xf-1)
		}
		out[i] = x[i]*math.Sqrt(t) + tail[i]*math.Sqrt(1-t)
	}
	return out
}

// bestSeam 返回 region 中与 ref 的皮尔逊相关系数最大的起点及其相关系数
func bestSeam(ref, region []float64) (int, float64) {
	xf := len(ref)
	lags := len(region) - xf + 1

	mean := 0.0
	for _, v := range ref {
		mean += v
	}
	mean /= float64(xf)
	centered := make([]float64, xf)
	refEnergy := 0.0
	for i, v := range ref {
		centered[i] = v - mean
		refEnergy += centered[i] * centered[i]
	}

	raw := crossCorrelate(region, centered, lags)

	prefix := make([]float64, len(region)+1)
	prefixSq := make([]float64, len(region)+1)
	for i, v := range region {
		prefix[i+1] = prefix[i] + v
		prefixSq[i+1] = prefixSq[i] + v*v
	}

	bestLag, bestCorr := 0, math.Inf(-1)
	for lag := 0; lag < lags; lag++ {
		sum := prefix[lag+xf] - prefix[lag]
		segEnergy := prefixSq[lag+xf] - prefixSq[lag] - sum*sum/float64(xf)

		corr := 0.0
		if denom := math.Sqrt(refEnergy * segEnergy); denom > nccMinEnergy {
			corr = raw[lag] / denom
		}
		if corr >= bestCorr {
			bestLag, bestCorr = lag, corr
		}
	}
	return bestLag, bestCorr
}

// crossCorrelate 用 FFT 计算 Σ region[lag+j]·ref[j]，lag ∈ [0, lags)
func crossCorrelate(region, ref []float64, lags int) []float64 {
	size := dsputils.NextPowerOf2(len(region) + len(ref))
	a := fft.FFTReal(dsputils.ZeroPadF(region, size))
	b := fft.FFTReal(dsputils.ZeroPadF(ref, size))
	for i := range a {
		a[i] *= cmplx.Conj(b[i])
	}
	c := fft.IFFT(a)

	out := make([]float64, lags)
	for i := range out {
		out[i] = real(c[i])
	}
	return out
}
