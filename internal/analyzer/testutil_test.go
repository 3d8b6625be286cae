package analyzer

import (
	"math"
	"math/rand/v2"

	"afterglow-engine/internal/types"
)

const testSampleRate = 44100

// silence 生成指定秒数的静音
func silence(sec float64) []float64 {
	return make([]float64, int(sec*testSampleRate))
}

// embedTone 在 buf 的 [startSec, startSec+durSec) 内写入正弦波
func embedTone(buf []float64, startSec, durSec, freq, amp float64) {
	start := int(startSec * testSampleRate)
	end := min(len(buf), start+int(durSec*testSampleRate))
	for i := start; i < end; i++ {
		buf[i] += amp * math.Sin(2*math.Pi*freq*float64(i-start)/testSampleRate)
	}
}

// embedClicks 每隔 intervalSec 写入一个短脉冲
func embedClicks(buf []float64, intervalSec, amp float64) {
	step := int(intervalSec * testSampleRate)
	for i := step / 2; i < len(buf); i += step {
		for j := 0; j < 32 && i+j < len(buf); j++ {
			buf[i+j] += amp * math.Exp(-float64(j)/6)
		}
	}
}

// addNoise 叠加可复现的白噪声
func addNoise(buf []float64, amp float64, seed uint64) {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for i := range buf {
		buf[i] += amp * (2*r.Float64() - 1)
	}
}

// toneScenario 30 秒音频，10s 起 6 秒 0.1 幅度的正弦，其余静音
func toneScenario() []float64 {
	buf := silence(30)
	embedTone(buf, 10, 6, 440, 0.1)
	return buf
}

func scenarioThresholds() types.Thresholds {
	return types.Thresholds{
		MaxOnsetRateHz:   3.0,
		MinRMSDB:         -40,
		MaxRMSDB:         -10,
		MaxDCOffset:      0.1,
		MaxCrestFactor:   10,
		MinStableWindows: 2,
	}
}
