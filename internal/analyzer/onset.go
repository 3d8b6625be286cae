package analyzer

// 峰值拾取参数（秒）
const (
	onsetPreMaxSec  = 0.03
	onsetPreAvgSec  = 0.10
	onsetPostAvgSec = 0.10
	onsetWaitSec    = 0.03
	onsetDelta      = 0.07
)

// DetectOnsets 在频谱通量曲线上拾取瞬态事件，返回事件所在的采样位置
//
// 通量先归一化到 [0,1]；一帧被判为瞬态需要同时满足：
// 是前 30ms 内的最大值、高于前后 100ms 均值 delta 以上、距上一事件超过 30ms。
func DetectOnsets(spec *Spectrogram) []int {
	n := spec.Frames()
	if n == 0 {
		return nil
	}

	envelope := normalizeEnvelope(spec.Flux)
	if envelope == nil {
		return nil
	}

	framesPerSec := float64(spec.SampleRate) / float64(spec.Hop)
	preMax := int(onsetPreMaxSec * framesPerSec)
	postMax := 1
	preAvg := int(onsetPreAvgSec * framesPerSec)
	postAvg := int(onsetPostAvgSec*framesPerSec) + 1
	wait := int(onsetWaitSec * framesPerSec)

	var onsets []int
	last := -wait - 1
	for i := 0; i < n; i++ {
		if i <= last+wait {
			continue
		}

		localMax := envelope[i]
		for j := max(0, i-preMax); j < min(n, i+postMax); j++ {
			if envelope[j] > localMax {
				localMax = envelope[j]
			}
		}
		if envelope[i] < localMax {
			continue
		}

		sum := 0.0
		lo, hi := max(0, i-preAvg), min(n, i+postAvg)
		for j := lo; j < hi; j++ {
			sum += envelope[j]
		}
		if envelope[i] < sum/float64(hi-lo)+onsetDelta {
			continue
		}

		onsets = append(onsets, spec.FrameCenter(i))
		last = i
	}

	return onsets
}

// normalizeEnvelope 减去最小值后除以最大值；平坦曲线返回 nil
func normalizeEnvelope(flux []float64) []float64 {
	lo, hi := flux[0], flux[0]
	for _, v := range flux {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if hi-lo < 1e-10 {
		return nil
	}

	out := make([]float64, len(flux))
	for i, v := range flux {
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}
