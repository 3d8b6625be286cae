package analyzer

import (
	"fmt"
	"math"
	"sort"
)

const (
	minDB        = -80.0 // RMS dB 下限
	crestMinRMS  = 1e-6  // 低于该 RMS 时峰值因子记为 0
	centroidNone = 0.0
)

type gridKey struct {
	window int
	hop    int
}

// Analyzer 稳定性分析器
//
// 一个实例只对应一段音频；STFT 结果按帧长缓存，指标网格按 (窗长, 跳长) 缓存。
// 不是并发安全的，每个 worker 使用自己的实例。
type Analyzer struct {
	samples      []float64
	sampleRate   int
	spectrograms map[int]*Spectrogram
	onsets       map[int][]int
	grids        map[gridKey]*Grid
	transforms   int
}

// New 创建分析器
func New(samples []float64, sampleRate int) (*Analyzer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("采样率必须为正数: %d: %w", sampleRate, ErrInvalidGeometry)
	}
	return &Analyzer{
		samples:      samples,
		sampleRate:   sampleRate,
		spectrograms: make(map[int]*Spectrogram),
		onsets:       make(map[int][]int),
		grids:        make(map[gridKey]*Grid),
	}, nil
}

// Analyze 对整段音频计算指标网格
func Analyze(samples []float64, sampleRate int, windowSec, hopSec float64) (*Grid, error) {
	a, err := New(samples, sampleRate)
	if err != nil {
		return nil, err
	}
	return a.Grid(windowSec, hopSec)
}

// SampleRate 返回采样率
func (a *Analyzer) SampleRate() int {
	return a.sampleRate
}

// Samples 返回分析的音频，调用方不能修改
func (a *Analyzer) Samples() []float64 {
	return a.samples
}

// Len 返回音频长度（采样数）
func (a *Analyzer) Len() int {
	return len(a.samples)
}

// Transforms 返回实际执行过的 STFT 次数
func (a *Analyzer) Transforms() int {
	return a.transforms
}

// Grid 返回给定窗长和跳长（秒）的指标网格，同一参数只计算一次
func (a *Analyzer) Grid(windowSec, hopSec float64) (*Grid, error) {
	window := int(math.Round(windowSec * float64(a.sampleRate)))
	hop := int(math.Round(hopSec * float64(a.sampleRate)))
	if window < 1 || hop < 1 {
		return nil, fmt.Errorf("窗长 %.3fs / 跳长 %.3fs 换算后不足一个采样: %w", windowSec, hopSec, ErrInvalidGeometry)
	}

	key := gridKey{window: window, hop: hop}
	if g, ok := a.grids[key]; ok {
		return g, nil
	}

	g := &Grid{
		SampleRate: a.sampleRate,
		Window:     window,
		Hop:        hop,
		Length:     len(a.samples),
	}
	if len(a.samples) >= window {
		g.Rows = a.computeRows(window, hop)
	}

	a.grids[key] = g
	return g, nil
}

// spectrogram 返回帧长对应的 STFT，必要时计算一次
func (a *Analyzer) spectrogram(window int) (*Spectrogram, []int) {
	sa := NewSpectrumAnalyzer(a.sampleRate, window)
	if spec, ok := a.spectrograms[sa.frameSize]; ok {
		return spec, a.onsets[sa.frameSize]
	}

	spec := sa.Analyze(a.samples)
	onsets := DetectOnsets(spec)
	a.transforms++
	a.spectrograms[sa.frameSize] = spec
	a.onsets[sa.frameSize] = onsets
	return spec, onsets
}

func (a *Analyzer) computeRows(window, hop int) []Row {
	spec, onsets := a.spectrogram(window)
	windowDur := float64(window) / float64(a.sampleRate)

	count := (len(a.samples)-window)/hop + 1
	rows := make([]Row, count)
	for i := range rows {
		start := i * hop
		end := start + window
		segment := a.samples[start:end]

		mean, peak, meanSquare := timeDomainStats(segment)
		first, last := framesInside(spec, start, end)

		energy := meanSquare
		if last >= first {
			sum := 0.0
			for j := first; j <= last; j++ {
				sum += spec.Energy[j]
			}
			energy = sum / float64(last-first+1)
		}

		centroid := centroidNone
		voiced := 0
		for j := first; j <= last; j++ {
			if spec.Voiced[j] {
				centroid += spec.Centroid[j]
				voiced++
			}
		}
		if voiced > 0 {
			centroid /= float64(voiced)
		}

		crest := 0.0
		if rms := math.Sqrt(meanSquare); rms >= crestMinRMS {
			crest = peak / rms
		}

		events := sort.SearchInts(onsets, end) - sort.SearchInts(onsets, start)

		rows[i] = Row{
			Start:      start,
			RMSDB:      amplitudeToDB(math.Sqrt(energy)),
			OnsetRate:  float64(events) / windowDur,
			DCOffset:   math.Abs(mean),
			Crest:      crest,
			CentroidHz: centroid,
		}
	}
	return rows
}

// framesInside 返回完全落在 [start, end) 内的帧号区间，没有时 last < first
func framesInside(spec *Spectrogram, start, end int) (first, last int) {
	n := spec.Frames()
	if n == 0 || end-start < spec.FrameSize {
		return 0, -1
	}
	first = (start + spec.Hop - 1) / spec.Hop
	last = min((end-spec.FrameSize)/spec.Hop, n-1)
	return first, last
}

func timeDomainStats(segment []float64) (mean, peak, meanSquare float64) {
	if len(segment) == 0 {
		return 0, 0, 0
	}
	sum, sumSquares := 0.0, 0.0
	for _, v := range segment {
		sum += v
		sumSquares += v * v
		peak = math.Max(peak, math.Abs(v))
	}
	n := float64(len(segment))
	return sum / n, peak, sumSquares / n
}

// Row 单个分析窗口的指标
type Row struct {
	Start      int     `json:"start"`      // 起始采样
	RMSDB      float64 `json:"rmsDb"`      // 均方根电平 (dB)
	OnsetRate  float64 `json:"onsetRate"`  // 每秒瞬态事件数
	DCOffset   float64 `json:"dcOffset"`   // 直流偏移绝对值
	Crest      float64 `json:"crest"`      // 峰值因子
	CentroidHz float64 `json:"centroidHz"` // 频谱质心
}

// Grid 指标网格，第 i 行起始于 i*Hop
type Grid struct {
	SampleRate int
	Window     int
	Hop        int
	Length     int
	Rows       []Row
}

// Len 返回窗口数
func (g *Grid) Len() int {
	return len(g.Rows)
}

// Span 返回第 i 个窗口覆盖的采样区间 [start, end)，end 不超过音频长度
func (g *Grid) Span(i int) (start, end int) {
	start = i * g.Hop
	end = min(start+g.Window, g.Length)
	return start, end
}

// Seconds 把采样数换算为秒
func (g *Grid) Seconds(samples int) float64 {
	if g.SampleRate <= 0 {
		return 0
	}
	return float64(samples) / float64(g.SampleRate)
}
