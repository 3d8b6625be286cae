package config

import "afterglow-engine/internal/types"

const (
	defaultLoopPeakDBFS    = -1.0
	defaultLoopCrossfadeMs = 100.0
	defaultPadSec          = 2.0
	defaultCloudsPerSource = 2
)

// firstOf 返回第一个非 nil 的值，全部未设置时返回 def
func firstOf[T any](def T, vals ...*T) T {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return def
}

// Thresholds 稳定性阈值：pre_analysis.* → pad_miner.* → 默认值
func (c *Config) Thresholds() types.Thresholds {
	def := types.DefaultThresholds()
	pre, pm := c.PreAnalysis, c.PadMiner

	return types.Thresholds{
		MaxOnsetRateHz:   firstOf(def.MaxOnsetRateHz, pre.MaxOnsetRateHz, pm.MaxOnsetRatePerSecond),
		MinRMSDB:         firstOf(def.MinRMSDB, pre.MinRMSDB, pm.MinRMSDB),
		MaxRMSDB:         firstOf(def.MaxRMSDB, pre.MaxRMSDB, pm.MaxRMSDB),
		MaxDCOffset:      firstOf(def.MaxDCOffset, pre.MaxDCOffset),
		MaxCrestFactor:   firstOf(def.MaxCrestFactor, pre.MaxCrestFactor),
		MinStableWindows: firstOf(def.MinStableWindows, pre.MinStableWindows),
		CentroidLowHz:    firstOf(def.CentroidLowHz, pre.CentroidLowHz),
		CentroidHighHz:   firstOf(def.CentroidHighHz, pre.CentroidHighHz),
	}
}

// AnalysisConfig 预分析参数
func (c *Config) AnalysisConfig() types.AnalysisConfig {
	def := types.DefaultAnalysisConfig()
	pre := c.PreAnalysis

	return types.AnalysisConfig{
		Enabled:          firstOf(def.Enabled, pre.Enabled),
		WindowSec:        firstOf(def.WindowSec, pre.AnalysisWindowSec),
		HopSec:           firstOf(def.HopSec, pre.AnalysisHopSec),
		Thresholds:       c.Thresholds(),
		FallbackFraction: firstOf(def.FallbackFraction, pre.FallbackFraction),
	}
}

// PitchRange 移调范围：pitch_shift_range{min,max} → ±max_pitch_shift_semitones → 默认值
func (c *Config) PitchRange() (lo, hi float64) {
	def := types.DefaultCloudConfig()
	cl := c.Clouds

	if r := cl.PitchShiftRange; r != nil {
		return firstOf(def.PitchMinSemitones, r.Min), firstOf(def.PitchMaxSemitones, r.Max)
	}
	if cl.MaxPitchShiftSemitones != nil {
		return -*cl.MaxPitchShiftSemitones, *cl.MaxPitchShiftSemitones
	}
	return def.PitchMinSemitones, def.PitchMaxSemitones
}

// CloudConfig 颗粒云参数，种子取自 reproducibility.random_seed
func (c *Config) CloudConfig() types.CloudConfig {
	def := types.DefaultCloudConfig()
	cl := c.Clouds
	lo, hi := c.PitchRange()

	return types.CloudConfig{
		GrainLenMinMs:        firstOf(def.GrainLenMinMs, cl.GrainLengthMinMs),
		GrainLenMaxMs:        firstOf(def.GrainLenMaxMs, cl.GrainLengthMaxMs),
		GrainCount:           firstOf(def.GrainCount, cl.GrainsPerCloud),
		DurationSec:          firstOf(def.DurationSec, cl.CloudDurationSec),
		OverlapRatio:         firstOf(def.OverlapRatio, cl.OverlapRatio),
		PitchMinSemitones:    lo,
		PitchMaxSemitones:    hi,
		QualityThreshold:     firstOf(def.QualityThreshold, cl.QualityThreshold),
		TargetPeakDBFS:       firstOf(def.TargetPeakDBFS, cl.TargetPeakDBFS),
		LowpassHz:            firstOf(def.LowpassHz, cl.LowpassHz),
		MaxAttempts:          firstOf(def.MaxAttempts, cl.MaxAttempts),
		MinPitchShiftSamples: firstOf(def.MinPitchShiftSamples, cl.MinPitchShiftSamples),
		Seed:                 c.Reproducibility.RandomSeed,
		Analysis:             c.AnalysisConfig(),
	}
}

// LoopConfig 循环参数
//
// 峰值：pad_miner.target_peak_dbfs → global.target_peak_dbfs → -1 dBFS；
// 交叉淡化：pad_miner.loop_crossfade_ms → pad_miner.crossfade_ms → 100 ms；
// pad 长度：pad_miner.target_durations_sec[0] → pad_miner.target_duration_sec → 2 s。
func (c *Config) LoopConfig() types.LoopConfig {
	pm := c.PadMiner
	var listed *float64
	if len(pm.TargetDurationsSec) > 0 {
		listed = &pm.TargetDurationsSec[0]
	}

	return types.LoopConfig{
		CrossfadeMs:    firstOf(defaultLoopCrossfadeMs, pm.LoopCrossfadeMs, pm.CrossfadeMs),
		TargetPeakDBFS: firstOf(defaultLoopPeakDBFS, pm.TargetPeakDBFS, c.Global.TargetPeakDBFS),
		PadSec:         firstOf(defaultPadSec, listed, pm.TargetDurationSec),
	}
}

// ClipsPerSource 每个源文件生成的颗粒云数量
func (c *Config) ClipsPerSource() int {
	return firstOf(defaultCloudsPerSource, c.Clouds.CloudsPerSource)
}

// Brightness 亮度标签边界
func (c *Config) Brightness() types.BrightnessBounds {
	def := types.DefaultBrightnessBounds()
	bt := c.BrightnessTags
	return types.BrightnessBounds{
		Enabled: firstOf(def.Enabled, bt.Enabled),
		LowHz:   firstOf(def.LowHz, bt.CentroidLowHz),
		HighHz:  firstOf(def.HighHz, bt.CentroidHighHz),
	}
}

// GradeThresholds 评级阈值
func (c *Config) GradeThresholds() types.GradeThresholds {
	def := types.DefaultGradeThresholds()
	th := c.Curation.Thresholds
	return types.GradeThresholds{
		MinRMSDB:          firstOf(def.MinRMSDB, th.MinRMSDB),
		ClippingTolerance: firstOf(def.ClippingTolerance, th.ClippingTolerance),
		MaxCrestFactor:    firstOf(def.MaxCrestFactor, th.MaxCrestFactor),
	}
}

// BatchConfig 汇总成批处理配置，命令行覆盖项由调用方再写入
func (c *Config) BatchConfig(mode types.Mode) *types.BatchConfig {
	mono := types.MonoMethod(c.Global.MonoMethod)
	if mono == "" {
		mono = types.MonoAverage
	}

	return &types.BatchConfig{
		Mode:            mode,
		SampleRate:      c.Global.SampleRate,
		BitDepth:        c.Global.OutputBitDepth,
		MonoMethod:      mono,
		CloudsPerSource: c.ClipsPerSource(),
		Cloud:           c.CloudConfig(),
		Loop:            c.LoopConfig(),
		Analysis:        c.AnalysisConfig(),
		Grading:         c.GradeThresholds(),
		Brightness:      c.Brightness(),
		SkipGradeF:      c.Curation.AutoDeleteGradeF,
	}
}
