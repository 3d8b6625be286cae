package synth

import (
	"math"
	"math/rand/v2"

	"afterglow-engine/internal/types"
)

const testSampleRate = 44100

func sine(n int, freq, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/testSampleRate)
	}
	return out
}

func noise(n int, amp float64, seed uint64) []float64 {
	r := rand.New(rand.NewPCG(seed, seed+1))
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * (2*r.Float64() - 1)
	}
	return out
}

// texture 带噪声的双音，作为颗粒云的素材
func texture(sec float64) []float64 {
	n := int(sec * testSampleRate)
	out := sine(n, 220, 0.2)
	for i, v := range sine(n, 330, 0.1) {
		out[i] += v
	}
	for i, v := range noise(n, 0.02, 11) {
		out[i] += v
	}
	return out
}

// smallCloud 较小的颗粒云参数，让测试跑得快
func smallCloud(seed *int64) types.CloudConfig {
	cfg := types.DefaultCloudConfig()
	cfg.GrainCount = 16
	cfg.DurationSec = 1.5
	cfg.Seed = seed
	return cfg
}

func int64p(v int64) *int64 {
	return &v
}

func hasNonFinite(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

// zeroCrossingFreq 用过零次数估计正弦频率
func zeroCrossingFreq(x []float64) float64 {
	crossings := 0
	for i := 1; i < len(x); i++ {
		if (x[i-1] < 0) != (x[i] < 0) {
			crossings++
		}
	}
	return float64(crossings) / 2 / (float64(len(x)) / testSampleRate)
}
