package synth

import "math"

const (
	lowpassStages = 2              // 级联节数，每节正反各滤一遍
	lowpassQ      = 1 / math.Sqrt2 // 巴特沃斯 Q
)

// biquad RBJ 双二阶滤波器系数（已按 a0 归一化）
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// newLowpass 二阶低通
func newLowpass(cutoffHz, sampleRate float64) biquad {
	w := 2.0 * math.Pi * cutoffHz / sampleRate
	cosw := math.Cos(w)
	alpha := math.Sin(w) / (2.0 * lowpassQ)

	a0 := 1.0 + alpha
	return biquad{
		b0: (1.0 - cosw) / 2.0 / a0,
		b1: (1.0 - cosw) / a0,
		b2: (1.0 - cosw) / 2.0 / a0,
		a1: -2.0 * cosw / a0,
		a2: (1.0 - alpha) / a0,
	}
}

// run 直接 I 型，原地处理
func (f biquad) run(x []float64) {
	var x1, x2, y1, y2 float64
	for i, x0 := range x {
		y0 := f.b0*x0 + f.b1*x1 + f.b2*x2 - f.a1*y1 - f.a2*y2
		x2, x1 = x1, x0
		y2, y1 = y1, y0
		x[i] = y0
	}
}

func reverse(x []float64) {
	for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
		x[i], x[j] = x[j], x[i]
	}
}

// Lowpass 零相位低通，返回新切片
//
// cutoffHz 不低于奈奎斯特频率时原样复制。
func Lowpass(x []float64, cutoffHz float64, sampleRate int) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	if cutoffHz <= 0 || cutoffHz >= float64(sampleRate)/2 || len(x) == 0 {
		return out
	}

	f := newLowpass(cutoffHz, float64(sampleRate))
	for s := 0; s < lowpassStages; s++ {
		f.run(out)
		reverse(out)
		f.run(out)
		reverse(out)
	}
	return out
}
