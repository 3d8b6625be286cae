package grain

import (
	"math/rand/v2"

	"afterglow-engine/internal/analyzer"
)

// Status 取样结果类型
type Status int

const (
	StatusFound            Status = iota // 落在稳定区间内
	StatusFoundViaFallback               // 落在回退掩码的区间内
	StatusRandom                         // 全范围均匀随机
	StatusOutOfRange                     // 颗粒长度不合法，Offset 无意义
	StatusLoudest                        // 没有可用掩码，取整段中电平最高的位置
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusFoundViaFallback:
		return "found_via_fallback"
	case StatusRandom:
		return "random"
	case StatusOutOfRange:
		return "out_of_range"
	case StatusLoudest:
		return "loudest"
	default:
		return "unknown"
	}
}

// Pick 一次取样的结果
type Pick struct {
	Offset int
	Status Status
}

// OK 是否得到了可用的起点
func (p Pick) OK() bool {
	return p.Status != StatusOutOfRange
}

// Weighting 稳定区间的选择方式
type Weighting int

const (
	WeightByLength Weighting = iota // 按区间长度加权
	WeightUniform                   // 每个区间等概率
)

// Option 取样器选项
type Option func(*Sampler)

// WithMasks 使用分析网格上的主掩码和回退掩码，任一掩码可以为 nil
func WithMasks(grid *analyzer.Grid, primary, fallback analyzer.Mask) Option {
	return func(s *Sampler) {
		s.grid = grid
		s.primary = primary
		s.fallback = fallback
	}
}

// WithWeighting 设置稳定区间的选择方式
func WithWeighting(w Weighting) Option {
	return func(s *Sampler) {
		s.weighting = w
	}
}

// Sampler 颗粒起点取样器
//
// 没有掩码时直接走均匀随机路径，不做任何分析工作。
type Sampler struct {
	bufLen    int
	rand      *rand.Rand
	grid      *analyzer.Grid
	primary   analyzer.Mask
	fallback  analyzer.Mask
	weighting Weighting
}

// NewSampler 创建取样器
func NewSampler(bufLen int, r *rand.Rand, opts ...Option) *Sampler {
	s := &Sampler{
		bufLen:    bufLen,
		rand:      r,
		weighting: WeightByLength,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// span 采样区间 [start, end)
type span struct {
	start int
	end   int
}

// Sample 为长度 grainLen 的颗粒选择起点
func (s *Sampler) Sample(grainLen int) Pick {
	if grainLen <= 0 || grainLen > s.bufLen {
		return Pick{Status: StatusOutOfRange}
	}

	if s.grid != nil {
		if offset, ok := s.pickFrom(s.primary, grainLen); ok {
			return Pick{Offset: offset, Status: StatusFound}
		}
		if offset, ok := s.pickFrom(s.fallback, grainLen); ok {
			return Pick{Offset: offset, Status: StatusFoundViaFallback}
		}
	}

	return Pick{Offset: s.rand.IntN(s.bufLen - grainLen + 1), Status: StatusRandom}
}

func (s *Sampler) pickFrom(mask analyzer.Mask, grainLen int) (int, bool) {
	spans := s.spans(mask, grainLen)
	if len(spans) == 0 {
		return 0, false
	}

	chosen := spans[0]
	switch s.weighting {
	case WeightUniform:
		chosen = spans[s.rand.IntN(len(spans))]
	default:
		total := 0
		for _, sp := range spans {
			total += sp.end - sp.start
		}
		target := s.rand.IntN(total)
		for _, sp := range spans {
			target -= sp.end - sp.start
			if target < 0 {
				chosen = sp
				break
			}
		}
	}

	return chosen.start + s.rand.IntN(chosen.end-chosen.start-grainLen+1), true
}

// spans 掩码中能容纳整个颗粒的连续区间，末端不超过音频长度
func (s *Sampler) spans(mask analyzer.Mask, grainLen int) []span {
	if len(mask) == 0 {
		return nil
	}
	var out []span
	for _, r := range analyzer.Runs(mask) {
		start, _ := s.grid.Span(r.Start)
		_, end := s.grid.Span(r.End - 1)
		end = min(end, s.bufLen)
		if end-start >= grainLen {
			out = append(out, span{start: start, end: end})
		}
	}
	return out
}
