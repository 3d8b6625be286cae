package synth

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
)

// 上移前的低通截止点占移调后奈奎斯特频率的比例
const antiAliasFraction = 0.8

// PitchRatio 半音数对应的频率比
func PitchRatio(semitones float64) float64 {
	return math.Pow(2, semitones/12)
}

// PitchShift 以频域重采样的方式移调，返回新切片，长度变为 round(len/ratio)
//
// 向上移调前先做零相位低通，截止频率为移调后奈奎斯特频率的 80%。
func PitchShift(grain []float64, sampleRate int, semitones float64) []float64 {
	if len(grain) == 0 || semitones == 0 {
		out := make([]float64, len(grain))
		copy(out, grain)
		return out
	}

	ratio := PitchRatio(semitones)
	src := grain
	if ratio > 1 {
		cutoff := antiAliasFraction * float64(sampleRate) / 2 / ratio
		src = Lowpass(grain, cutoff, sampleRate)
	}

	target := max(1, int(math.Round(float64(len(grain))/ratio)))
	return resampleSpectral(src, target)
}

// resampleSpectral 在频域截断或补零后做逆变换，结果长度为 m
func resampleSpectral(x []float64, m int) []float64 {
	n := len(x)
	if n == m {
		out := make([]float64, n)
		copy(out, x)
		return out
	}

	spectrum := fft.FFTReal(x)
	resized := make([]complex128, m)

	shared := min(n, m)
	half := (shared + 1) / 2 // 不含奈奎斯特的正频率数（含直流）
	for k := 0; k < half; k++ {
		resized[k] = spectrum[k]
		if k > 0 {
			resized[m-k] = spectrum[n-k]
		}
	}

	if shared%2 == 0 {
		k := shared / 2
		switch {
		case m < n:
			// 降采样：两侧分量合并到新的奈奎斯特点
			resized[k] = spectrum[k] + spectrum[n-k]
		case m > n:
			// 升采样：原奈奎斯特分量对半分到两侧
			resized[k] = spectrum[k] / 2
			resized[m-k] = spectrum[k] / 2
		}
	}

	inverse := fft.IFFT(resized)
	scale := float64(m) / float64(n)
	out := make([]float64, m)
	for i, v := range inverse {
		out[i] = real(v) * scale
	}
	return out
}
