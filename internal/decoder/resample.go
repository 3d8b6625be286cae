package decoder

import (
	"fmt"
	"math"
)

// 降采样前的一阶低通截止频率，占目标采样率的比例
const resampleCutoff = 0.45

// Resample 用 Catmull-Rom 三次插值把单声道采样从 fromRate 转到 toRate
//
// 降采样时先做一阶低通；两端越界的邻点取边界值。
func Resample(samples []float64, fromRate, toRate int) ([]float64, error) {
	if fromRate <= 0 || toRate <= 0 {
		return nil, fmt.Errorf("%d -> %d: %w", fromRate, toRate, ErrInvalidSampleRate)
	}
	if fromRate == toRate || len(samples) == 0 {
		out := make([]float64, len(samples))
		copy(out, samples)
		return out, nil
	}

	src := samples
	if toRate < fromRate {
		src = onePoleLowpass(samples, resampleCutoff*float64(toRate), fromRate)
	}

	step := float64(fromRate) / float64(toRate)
	n := int(math.Round(float64(len(src)) / step))
	last := len(src) - 1
	at := func(i int) float64 {
		return src[max(0, min(i, last))]
	}

	out := make([]float64, n)
	for i := range out {
		pos := float64(i) * step
		idx := int(pos)
		frac := pos - float64(idx)
		out[i] = cubicInterpolate(at(idx-1), at(idx), at(idx+1), at(idx+2), frac)
	}
	return out, nil
}

// cubicInterpolate 在 y1 和 y2 之间做 Catmull-Rom 插值，x ∈ [0, 1]
func cubicInterpolate(y0, y1, y2, y3, x float64) float64 {
	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2
	a3 := y1

	return a0*x*x*x + a1*x*x + a2*x + a3
}

// onePoleLowpass y[n] = α·x[n] + (1−α)·y[n−1]，状态以首个采样初始化
func onePoleLowpass(x []float64, cutoffHz float64, sampleRate int) []float64 {
	alpha := 1 - math.Exp(-2*math.Pi*cutoffHz/float64(sampleRate))
	out := make([]float64, len(x))
	state := x[0]
	for i, v := range x {
		state = alpha*v + (1-alpha)*state
		out[i] = state
	}
	return out
}
