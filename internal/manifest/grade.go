package manifest

import "afterglow-engine/internal/types"

// 评级结果
const (
	GradeA = "A"
	GradeB = "B"
	GradeF = "F"
)

// 亮度标签
const (
	BrightnessDark   = "dark"
	BrightnessMid    = "mid"
	BrightnessBright = "bright"
)

const (
	gradeAHeadroomDB  = 15.0  // A 级要求 RMS 高出下限的幅度
	gradeACrestFactor = 0.6   // A 级要求波峰因数低于上限的比例
	gradeALoopErrorDB = -30.0 // A 级要求的接缝误差
)

// Grade 按阈值给输出打分
//
// 低于 RMS 下限、峰值到达削波容差或波峰因数超限为 F；
// 电平充足、波峰因数较低且接缝误差足够小（或没有接缝误差）为 A；其余为 B。
func Grade(q types.Quality, th types.GradeThresholds) string {
	if q.RMSDB < th.MinRMSDB || q.Peak >= 1-th.ClippingTolerance || q.CrestFactor > th.MaxCrestFactor {
		return GradeF
	}

	if q.RMSDB > th.MinRMSDB+gradeAHeadroomDB && q.CrestFactor < th.MaxCrestFactor*gradeACrestFactor {
		if q.LoopErrorDB == nil || *q.LoopErrorDB < gradeALoopErrorDB {
			return GradeA
		}
	}

	return GradeB
}

// Brightness 按频谱质心给出 dark / mid / bright；没有质心（静音）时为 mid
func Brightness(centroidHz float64, b types.BrightnessBounds) string {
	switch {
	case centroidHz <= 0:
		return BrightnessMid
	case centroidHz < b.LowHz:
		return BrightnessDark
	case centroidHz > b.HighHz:
		return BrightnessBright
	default:
		return BrightnessMid
	}
}
