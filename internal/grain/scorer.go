package grain

import "math"

const silentPeak = 1e-8

// ScoreConfig 颗粒质量评分参数
//
// 各项惩罚按档位相乘，1.0 表示不惩罚。
type ScoreConfig struct {
	LowRMS       float64 // 低于此 RMS ×0.3
	SilentRMS    float64 // 低于此 RMS ×0.1
	MaxDCOffset  float64 // 超过 ×0.7，超过两倍 ×0.4
	ClipPeak     float64 // 超过 ×0.5
	HardClipPeak float64 // 达到 ×0.3
	MaxCrest     float64 // 超过 ×0.6，超过两倍 ×0.3
	MaxSkew      float64 // 前后半段能量差占比超过 ×0.6
	SevereSkew   float64 // 超过 ×0.3
	Threshold    float64 // 分数低于此值即拒绝
}

// DefaultScoreConfig 返回默认评分参数
func DefaultScoreConfig() ScoreConfig {
	return ScoreConfig{
		LowRMS:       0.01,
		SilentRMS:    0.001,
		MaxDCOffset:  0.1,
		ClipPeak:     0.95,
		HardClipPeak: 0.99,
		MaxCrest:     8.0,
		MaxSkew:      0.8,
		SevereSkew:   0.95,
		Threshold:    0.4,
	}
}

// Score 评分结果
type Score struct {
	Value    float64
	Accepted bool
}

// ScoreGrain 使用默认参数评分
func ScoreGrain(segment []float64) Score {
	return DefaultScoreConfig().Score(segment)
}

// Score 计算颗粒质量分数，范围 [0,1]
//
// 静音、峰值因子和包络偏斜都在去掉均值之后计算，峰值取去均值峰值加直流，
// 所以叠加的直流越大分数只会不变或下降。全零输入直接得 0 分。
func (c ScoreConfig) Score(segment []float64) Score {
	if len(segment) == 0 {
		return Score{Value: 0, Accepted: c.accept(0)}
	}

	mean := 0.0
	for _, v := range segment {
		mean += v
	}
	mean /= float64(len(segment))
	dc := math.Abs(mean)

	acPeak, acSquares := 0.0, 0.0
	for _, v := range segment {
		d := v - mean
		acPeak = math.Max(acPeak, math.Abs(d))
		acSquares += d * d
	}
	peak := acPeak + dc
	if peak < silentPeak {
		return Score{Value: 0, Accepted: c.accept(0)}
	}
	rms := math.Sqrt(acSquares / float64(len(segment)))

	value := 1.0

	switch {
	case rms < c.SilentRMS:
		value *= 0.1
	case rms < c.LowRMS:
		value *= 0.3
	}

	switch {
	case dc > 2*c.MaxDCOffset:
		value *= 0.4
	case dc > c.MaxDCOffset:
		value *= 0.7
	}

	switch {
	case peak >= c.HardClipPeak:
		value *= 0.3
	case peak > c.ClipPeak:
		value *= 0.5
	}

	if rms > 0 {
		crest := acPeak / rms
		switch {
		case crest > 2*c.MaxCrest:
			value *= 0.3
		case crest > c.MaxCrest:
			value *= 0.6
		}
	}

	if len(segment) > 10 {
		skew := envelopeSkew(segment, mean)
		switch {
		case skew > c.SevereSkew:
			value *= 0.3
		case skew > c.MaxSkew:
			value *= 0.6
		}
	}

	value = math.Max(0, math.Min(1, value))
	return Score{Value: value, Accepted: c.accept(value)}
}

func (c ScoreConfig) accept(value float64) bool {
	return !(value < c.Threshold)
}

// envelopeSkew 前后两半能量差占总能量的比例
func envelopeSkew(segment []float64, mean float64) float64 {
	half := len(segment) / 2
	first, second := 0.0, 0.0
	for i, v := range segment {
		d := (v - mean) * (v - mean)
		if i < half {
			first += d
		} else {
			second += d
		}
	}
	total := first + second
	if total <= 0 {
		return 0
	}
	return math.Abs(first-second) / total
}
