// Package config 读取 YAML 配置文件，并按旧键名的回退顺序解析出各模块使用的参数。
package config

import (
	"errors"
	"fmt"
	"os"

	"afterglow-engine/internal/types"

	"gopkg.in/yaml.v3"
)

// CurrentVersion 支持的配置文件版本
const CurrentVersion = 1

// ErrInvalidConfig 配置校验失败
var ErrInvalidConfig = errors.New("配置不合法")

// Config 配置文件结构，可选字段用指针表示“未设置”
type Config struct {
	Version         int             `yaml:"version"`
	Global          Global          `yaml:"global"`
	PreAnalysis     PreAnalysis     `yaml:"pre_analysis"`
	Clouds          Clouds          `yaml:"clouds"`
	PadMiner        PadMiner        `yaml:"pad_miner"`
	BrightnessTags  BrightnessTags  `yaml:"brightness_tags"`
	Curation        Curation        `yaml:"curation"`
	Reproducibility Reproducibility `yaml:"reproducibility"`
}

// Global 全局参数
type Global struct {
	SampleRate     int      `yaml:"sample_rate"`
	OutputBitDepth int      `yaml:"output_bit_depth"`
	TargetPeakDBFS *float64 `yaml:"target_peak_dbfs"`
	MonoMethod     string   `yaml:"mono_method"`
}

// PreAnalysis 稳定性预分析
type PreAnalysis struct {
	Enabled           *bool    `yaml:"enabled"`
	AnalysisWindowSec *float64 `yaml:"analysis_window_sec"`
	AnalysisHopSec    *float64 `yaml:"analysis_hop_sec"`
	MinRMSDB          *float64 `yaml:"min_rms_db"`
	MaxRMSDB          *float64 `yaml:"max_rms_db"`
	MaxOnsetRateHz    *float64 `yaml:"max_onset_rate_hz"`
	MaxDCOffset       *float64 `yaml:"max_dc_offset"`
	MaxCrestFactor    *float64 `yaml:"max_crest_factor"`
	MinStableWindows  *int     `yaml:"min_stable_windows"`
	CentroidLowHz     *float64 `yaml:"centroid_low_hz"`
	CentroidHighHz    *float64 `yaml:"centroid_high_hz"`
	FallbackFraction  *float64 `yaml:"fallback_fraction"`
}

// PitchRange 移调范围（半音）
type PitchRange struct {
	Min *float64 `yaml:"min"`
	Max *float64 `yaml:"max"`
}

// Clouds 颗粒云
type Clouds struct {
	GrainLengthMinMs       *float64    `yaml:"grain_length_min_ms"`
	GrainLengthMaxMs       *float64    `yaml:"grain_length_max_ms"`
	GrainsPerCloud         *int        `yaml:"grains_per_cloud"`
	CloudDurationSec       *float64    `yaml:"cloud_duration_sec"`
	OverlapRatio           *float64    `yaml:"overlap_ratio"`
	PitchShiftRange        *PitchRange `yaml:"pitch_shift_range"`
	MaxPitchShiftSemitones *float64    `yaml:"max_pitch_shift_semitones"` // 旧键，对称 ±N
	CloudsPerSource        *int        `yaml:"clouds_per_source"`
	TargetPeakDBFS         *float64    `yaml:"target_peak_dbfs"`
	LowpassHz              *float64    `yaml:"lowpass_hz"`
	QualityThreshold       *float64    `yaml:"quality_threshold"`
	MaxAttempts            *int        `yaml:"max_attempts"`
	MinPitchShiftSamples   *int        `yaml:"min_pitch_shift_samples"`
}

// PadMiner 循环 pad
type PadMiner struct {
	MinRMSDB              *float64  `yaml:"min_rms_db"`
	MaxRMSDB              *float64  `yaml:"max_rms_db"`
	MaxOnsetRatePerSecond *float64  `yaml:"max_onset_rate_per_second"`
	TargetDurationsSec    []float64 `yaml:"target_durations_sec"` // 只使用第一个
	TargetDurationSec     *float64  `yaml:"target_duration_sec"`  // 旧键
	LoopCrossfadeMs       *float64  `yaml:"loop_crossfade_ms"`
	CrossfadeMs           *float64  `yaml:"crossfade_ms"` // 旧键
	TargetPeakDBFS        *float64  `yaml:"target_peak_dbfs"`
}

// BrightnessTags 亮度标签
type BrightnessTags struct {
	Enabled        *bool    `yaml:"enabled"`
	CentroidLowHz  *float64 `yaml:"centroid_low_hz"`
	CentroidHighHz *float64 `yaml:"centroid_high_hz"`
}

// Curation 评级
type Curation struct {
	Thresholds struct {
		MinRMSDB          *float64 `yaml:"min_rms_db"`
		ClippingTolerance *float64 `yaml:"clipping_tolerance"`
		MaxCrestFactor    *float64 `yaml:"max_crest_factor"`
	} `yaml:"thresholds"`
	AutoDeleteGradeF bool `yaml:"auto_delete_grade_f"`
}

// Reproducibility 随机种子
type Reproducibility struct {
	RandomSeed *int64 `yaml:"random_seed"`
}

// Default 返回内置默认配置
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Global: Global{
			SampleRate:     44100,
			OutputBitDepth: 24,
			MonoMethod:     string(types.MonoAverage),
		},
	}
}

// Load 在默认配置上叠加 YAML 文件并校验；path 为空时只返回默认配置
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %s: %w", path, err)
	}
	if cfg.Version == 0 {
		cfg.Version = CurrentVersion
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 一次性报告所有问题
func (c *Config) Validate() error {
	var errs []error
	addf := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Version != CurrentVersion {
		addf("version: 不支持的版本 %d", c.Version)
	}
	if c.Global.SampleRate <= 0 {
		addf("global.sample_rate 必须为正整数")
	}
	if c.Global.OutputBitDepth != 16 && c.Global.OutputBitDepth != 24 {
		addf("global.output_bit_depth 必须为 16 或 24")
	}
	if m := types.MonoMethod(c.Global.MonoMethod); m != "" && !m.Valid() {
		addf("global.mono_method: 未知的方式 %q", c.Global.MonoMethod)
	}

	cloud := c.CloudConfig()
	if cloud.GrainLenMinMs <= 0 {
		addf("clouds.grain_length_min_ms 必须为正数")
	}
	if cloud.GrainLenMinMs > cloud.GrainLenMaxMs {
		addf("clouds.grain_length_min_ms 不能大于 grain_length_max_ms")
	}
	if cloud.OverlapRatio < 0 || cloud.OverlapRatio >= 1 {
		addf("clouds.overlap_ratio 必须在 [0, 1) 内")
	}
	if cloud.GrainCount < 1 {
		addf("clouds.grains_per_cloud 至少为 1")
	}
	if cloud.DurationSec <= 0 {
		addf("clouds.cloud_duration_sec 必须为正数")
	}
	if cloud.PitchMinSemitones > cloud.PitchMaxSemitones {
		addf("clouds.pitch_shift_range: min 不能大于 max")
	}
	if c.ClipsPerSource() < 1 {
		addf("clouds.clouds_per_source 至少为 1")
	}

	if lo, hi := c.PadMiner.MinRMSDB, c.PadMiner.MaxRMSDB; lo != nil && hi != nil && *lo > *hi {
		addf("pad_miner.min_rms_db 不能大于 max_rms_db")
	}
	if lo, hi := c.PreAnalysis.MinRMSDB, c.PreAnalysis.MaxRMSDB; lo != nil && hi != nil && *lo > *hi {
		addf("pre_analysis.min_rms_db 不能大于 max_rms_db")
	}

	analysis := cloud.Analysis
	if analysis.WindowSec <= 0 || analysis.HopSec <= 0 {
		addf("pre_analysis.analysis_window_sec 和 analysis_hop_sec 必须为正数")
	}
	if f := analysis.FallbackFraction; f <= 0 || f > 1 {
		addf("pre_analysis.fallback_fraction 必须在 (0, 1] 内")
	}
	if analysis.Thresholds.MinStableWindows < 1 {
		addf("pre_analysis.min_stable_windows 至少为 1")
	}

	loop := c.LoopConfig()
	if loop.CrossfadeMs < 0 {
		addf("pad_miner.loop_crossfade_ms 不能为负数")
	}
	if loop.PadSec < 0 {
		addf("pad_miner.target_durations_sec 不能为负数")
	}
	if b := c.Brightness(); b.LowHz > b.HighHz {
		addf("brightness_tags.centroid_low_hz 不能大于 centroid_high_hz")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
