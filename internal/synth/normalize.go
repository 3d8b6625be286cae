package synth

import (
	"fmt"
	"math"
)

const (
	silentPeak  = 1e-8 // 低于该峰值视为静音
	crestMinRMS = 1e-6 // 低于该 RMS 时峰值因子记为 0
	minDB       = -80.0
)

// DBToLinear dBFS 转线性幅度
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// LinearToDB 线性幅度转 dB，下限为 -80
func LinearToDB(linear float64) float64 {
	if linear <= 0 {
		return minDB
	}
	return math.Max(minDB, 20*math.Log10(linear))
}

// Peak 返回绝对值最大的采样
func Peak(x []float64) float64 {
	peak := 0.0
	for _, v := range x {
		peak = math.Max(peak, math.Abs(v))
	}
	return peak
}

// RMS 均方根
func RMS(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

// checkFinite 输入不能为空，也不能含 NaN/Inf
func checkFinite(x []float64) error {
	if len(x) == 0 {
		return fmt.Errorf("空的音频缓冲区: %w", ErrInvalidInput)
	}
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("第 %d 个采样为 %v: %w", i, v, ErrInvalidInput)
		}
	}
	return nil
}

// Normalize 把峰值缩放到 targetDBFS，结果截断在 [-1, 1]
//
// 峰值低于 1e-8 时返回 ErrSilent，不做除法。
func Normalize(x []float64, targetDBFS float64) ([]float64, error) {
	if err := checkFinite(x); err != nil {
		return nil, err
	}

	peak := Peak(x)
	if peak < silentPeak {
		return nil, fmt.Errorf("峰值 %.2e: %w", peak, ErrSilent)
	}

	gain := DBToLinear(targetDBFS) / peak
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Max(-1, math.Min(1, v*gain))
	}
	return out, nil
}
