package decoder

import (
	"fmt"
	"math"

	"afterglow-engine/internal/types"
)

// ToMono 把交错排列的采样转成单声道
//
// 单声道输入返回副本；立体声按 method 合并；更多声道不支持。
func ToMono(interleaved []float64, channels int, method types.MonoMethod) ([]float64, error) {
	switch channels {
	case 1:
		out := make([]float64, len(interleaved))
		copy(out, interleaved)
		return out, nil
	case 2:
	default:
		return nil, fmt.Errorf("%d 声道: %w", channels, ErrUnsupportedChannels)
	}

	var mix func(l, r float64) float64
	switch method {
	case types.MonoAverage, "":
		mix = func(l, r float64) float64 { return (l + r) * 0.5 }
	case types.MonoSum:
		mix = func(l, r float64) float64 { return (l + r) / math.Sqrt2 }
	case types.MonoLeft:
		mix = func(l, _ float64) float64 { return l }
	case types.MonoRight:
		mix = func(_, r float64) float64 { return r }
	default:
		return nil, fmt.Errorf("%q: %w", method, ErrUnknownMonoMethod)
	}

	frames := len(interleaved) / 2
	out := make([]float64, frames)
	for f := range frames {
		out[f] = mix(interleaved[2*f], interleaved[2*f+1])
	}
	return out, nil
}
