package decoder

import "time"

// fullScale 整数 PCM 的满幅值，8 到 32 位以外按 16 位处理
func fullScale(bitDepth int) float64 {
	if bitDepth < 8 || bitDepth > 32 {
		bitDepth = 16
	}
	return float64(int64(1) << uint(bitDepth-1))
}

// intToFloat 把整数 PCM 转成 [-1, 1) 的浮点采样
func intToFloat(data []int, bitDepth int) []float64 {
	scale := fullScale(bitDepth)
	samples := make([]float64, len(data))
	for i, v := range data {
		samples[i] = float64(v) / scale
	}
	return samples
}

// framesDuration 帧数换算成时长
func framesDuration(frames int64, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(frames) / float64(sampleRate) * float64(time.Second))
}
