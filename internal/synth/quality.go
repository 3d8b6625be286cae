package synth

import (
	"math"

	"afterglow-engine/internal/analyzer"
	"afterglow-engine/internal/types"
)

// 首尾比较片段的最大长度
const maxSeamLen = 2048

// Measure 计算输出音频的质量指标
//
// LoopErrorDB 比较开头与结尾各 min(len/8, 2048) 个采样的差值 RMS。
func Measure(samples []float64, sampleRate int) types.Quality {
	rms := RMS(samples)
	peak := Peak(samples)

	q := types.Quality{
		RMSDB:      LinearToDB(rms),
		Peak:       peak,
		CentroidHz: analyzer.SpectralCentroid(samples, sampleRate),
	}
	if rms >= crestMinRMS {
		q.CrestFactor = peak / rms
	}

	if seam := min(len(samples)/8, maxSeamLen); seam > 0 {
		head := samples[:seam]
		tail := samples[len(samples)-seam:]
		sum := 0.0
		for i := range head {
			d := head[i] - tail[i]
			sum += d * d
		}
		loopErr := 20 * math.Log10(math.Sqrt(sum/float64(seam))+1e-12)
		q.LoopErrorDB = &loopErr
	}

	return q
}
