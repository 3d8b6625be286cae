package analyzer

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/spectral"
	"github.com/mjibson/go-dsp/window"
)

const (
	defaultFrameSize = 2048 // STFT 帧长
	minFrameSize     = 4    // 帧长下限
	segmentBatch     = 256  // 每次切分的帧数，避免一次性展开整段音频
)

// SpectrumAnalyzer 短时傅里叶变换分析器
type SpectrumAnalyzer struct {
	sampleRate int
	frameSize  int
	hop        int
}

// NewSpectrumAnalyzer 创建频谱分析器
//
// 帧长取 2048 与 maxFrame 以内最大 2 的幂中的较小者，跳长为帧长的 1/4。
func NewSpectrumAnalyzer(sampleRate, maxFrame int) *SpectrumAnalyzer {
	frameSize := defaultFrameSize
	if maxFrame > 0 && maxFrame < frameSize {
		frameSize = max(floorPowerOf2(maxFrame), minFrameSize)
	}
	hop := frameSize / 4
	return &SpectrumAnalyzer{
		sampleRate: sampleRate,
		frameSize:  frameSize,
		hop:        hop,
	}
}

// Spectrogram 每帧的频谱派生量
type Spectrogram struct {
	SampleRate int
	FrameSize  int
	Hop        int
	Energy     []float64 // 每帧均方值（由 Parseval 从功率谱还原）
	Centroid   []float64 // 每帧频谱质心 (Hz)
	Voiced     []bool    // 该帧幅度谱非零，质心有效
	Flux       []float64 // 半波整流的频谱通量
}

// Frames 返回帧数
func (s *Spectrogram) Frames() int {
	return len(s.Energy)
}

// FrameStart 返回第 i 帧的起始采样
func (s *Spectrogram) FrameStart(i int) int {
	return i * s.Hop
}

// FrameCenter 返回第 i 帧的中心采样
func (s *Spectrogram) FrameCenter(i int) int {
	return i*s.Hop + s.FrameSize/2
}

// Analyze 计算整段音频的 STFT 派生量
func (s *SpectrumAnalyzer) Analyze(samples []float64) *Spectrogram {
	result := &Spectrogram{
		SampleRate: s.sampleRate,
		FrameSize:  s.frameSize,
		Hop:        s.hop,
	}
	if len(samples) < s.frameSize {
		return result
	}

	win := window.Hann(s.frameSize)
	winPower := 0.0
	for _, w := range win {
		winPower += w * w
	}

	total := (len(samples)-s.frameSize)/s.hop + 1
	result.Energy = make([]float64, 0, total)
	result.Centroid = make([]float64, 0, total)
	result.Voiced = make([]bool, 0, total)
	result.Flux = make([]float64, 0, total)

	var prev []float64
	for first := 0; first < total; first += segmentBatch {
		count := min(segmentBatch, total-first)
		start := first * s.hop
		end := start + (count-1)*s.hop + s.frameSize
		frames := spectral.Segment(samples[start:end], s.frameSize, s.frameSize-s.hop)

		for _, frame := range frames {
			for i := range frame {
				frame[i] *= win[i]
			}
			magnitude := s.calculateMagnitudeSpectrum(fft.FFTReal(frame))

			result.Energy = append(result.Energy, s.frameEnergy(magnitude, winPower))
			centroid, voiced := s.spectralCentroid(magnitude)
			result.Centroid = append(result.Centroid, centroid)
			result.Voiced = append(result.Voiced, voiced)
			result.Flux = append(result.Flux, spectralFlux(prev, magnitude))
			prev = magnitude
		}
	}

	return result
}

// calculateMagnitudeSpectrum 计算单边幅度谱
func (s *SpectrumAnalyzer) calculateMagnitudeSpectrum(spectrum []complex128) []float64 {
	magnitude := make([]float64, len(spectrum)/2+1)
	for i := range magnitude {
		magnitude[i] = cmplx.Abs(spectrum[i])
	}
	return magnitude
}

// frameEnergy 由单边幅度谱还原帧的均方值
func (s *SpectrumAnalyzer) frameEnergy(magnitude []float64, winPower float64) float64 {
	if winPower <= 0 {
		return 0
	}
	last := len(magnitude) - 1
	sum := magnitude[0]*magnitude[0] + magnitude[last]*magnitude[last]
	for k := 1; k < last; k++ {
		sum += 2 * magnitude[k] * magnitude[k]
	}
	return sum / (float64(s.frameSize) * winPower)
}

// spectralCentroid 幅度加权的平均频率
func (s *SpectrumAnalyzer) spectralCentroid(magnitude []float64) (float64, bool) {
	freqResolution := float64(s.sampleRate) / float64(s.frameSize)
	weighted, total := 0.0, 0.0
	for k, m := range magnitude {
		weighted += float64(k) * freqResolution * m
		total += m
	}
	if total < 1e-10 {
		return 0, false
	}
	return weighted / total, true
}

// spectralFlux 相邻帧幅度谱的正向增量之和
func spectralFlux(prev, cur []float64) float64 {
	if prev == nil {
		return 0
	}
	flux := 0.0
	for k := range cur {
		if d := cur[k] - prev[k]; d > 0 {
			flux += d
		}
	}
	return flux
}

// SpectralCentroid 计算整段音频的平均频谱质心
func SpectralCentroid(samples []float64, sampleRate int) float64 {
	if len(samples) == 0 || sampleRate <= 0 {
		return 0
	}
	spec := NewSpectrumAnalyzer(sampleRate, len(samples)).Analyze(samples)

	sum, count := 0.0, 0
	for i, c := range spec.Centroid {
		if spec.Voiced[i] {
			sum += c
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// floorPowerOf2 不超过 n 的最大 2 的幂
func floorPowerOf2(n int) int {
	power := 1
	for power*2 <= n {
		power <<= 1
	}
	return power
}

func amplitudeToDB(amplitude float64) float64 {
	if amplitude <= 0 {
		return minDB
	}
	return math.Max(minDB, 20*math.Log10(amplitude))
}
