package types

import "time"

// Mode 批处理模式
type Mode string

const (
	ModeCloud   Mode = "cloud"   // 颗粒云
	ModeLoop    Mode = "loop"    // 循环 pad
	ModeAnalyze Mode = "analyze" // 只做稳定性分析
)

// MonoMethod 立体声转单声道方式
type MonoMethod string

const (
	MonoAverage MonoMethod = "average" // 声道平均
	MonoSum     MonoMethod = "sum"     // 求和后除以 √2，近似保持功率
	MonoLeft    MonoMethod = "left"    // 只取左声道
	MonoRight   MonoMethod = "right"   // 只取右声道
)

// Valid 判断是否为已知的单声道化方式
func (m MonoMethod) Valid() bool {
	switch m {
	case MonoAverage, MonoSum, MonoLeft, MonoRight:
		return true
	}
	return false
}

// BatchConfig 批处理配置
type BatchConfig struct {
	Mode         Mode
	OutputDir    string
	SampleRate   int // 0 表示保持源采样率
	BitDepth     int
	MonoMethod   MonoMethod
	Concurrency  int  // 并发数
	Quiet        bool // 静默模式
	JSONOutput   bool // JSON输出格式
	Verbose      bool // 输出分析细节
	ManifestPath string

	CloudsPerSource int
	Cloud           CloudConfig
	Loop            LoopConfig
	Analysis        AnalysisConfig // analyze 模式使用
	Grading         GradeThresholds
	Brightness      BrightnessBounds
	SkipGradeF      bool // 评级为 F 的输出不写文件
}

// Thresholds 稳定性阈值
//
// CentroidLowHz / CentroidHighHz 为 0 时不启用对应的频谱质心边界。
type Thresholds struct {
	MaxOnsetRateHz   float64 `json:"maxOnsetRateHz"`
	MinRMSDB         float64 `json:"minRmsDb"`
	MaxRMSDB         float64 `json:"maxRmsDb"`
	MaxDCOffset      float64 `json:"maxDcOffset"`
	MaxCrestFactor   float64 `json:"maxCrestFactor"`
	MinStableWindows int     `json:"minStableWindows"`
	CentroidLowHz    float64 `json:"centroidLowHz,omitempty"`
	CentroidHighHz   float64 `json:"centroidHighHz,omitempty"`
}

// DefaultThresholds 返回默认稳定性阈值
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxOnsetRateHz:   3.0,
		MinRMSDB:         -40.0,
		MaxRMSDB:         -10.0,
		MaxDCOffset:      0.1,
		MaxCrestFactor:   10.0,
		MinStableWindows: 2,
	}
}

// AnalysisConfig 预分析配置
type AnalysisConfig struct {
	Enabled          bool
	WindowSec        float64
	HopSec           float64
	Thresholds       Thresholds
	FallbackFraction float64 // 无稳定区间时按瞬态密度保留的窗口比例
}

// DefaultAnalysisConfig 返回默认预分析配置
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		Enabled:          true,
		WindowSec:        1.0,
		HopSec:           0.5,
		Thresholds:       DefaultThresholds(),
		FallbackFraction: 0.2,
	}
}

// CloudConfig 颗粒云合成配置
type CloudConfig struct {
	GrainLenMinMs        float64
	GrainLenMaxMs        float64
	GrainCount           int
	DurationSec          float64
	OverlapRatio         float64
	PitchMinSemitones    float64
	PitchMaxSemitones    float64
	QualityThreshold     float64
	TargetPeakDBFS       float64
	LowpassHz            float64 // 0 表示不做后置低通
	MaxAttempts          int     // 每个颗粒的最大尝试次数
	MinPitchShiftSamples int     // 短于该长度的颗粒不做移调
	Seed                 *int64
	Analysis             AnalysisConfig
}

// DefaultCloudConfig 返回默认颗粒云配置
func DefaultCloudConfig() CloudConfig {
	return CloudConfig{
		GrainLenMinMs:        50,
		GrainLenMaxMs:        150,
		GrainCount:           200,
		DurationSec:          10,
		OverlapRatio:         0.75,
		PitchMinSemitones:    -8,
		PitchMaxSemitones:    8,
		QualityThreshold:     0.4,
		TargetPeakDBFS:       -3.0,
		MaxAttempts:          10,
		MinPitchShiftSamples: 2048,
		Analysis:             DefaultAnalysisConfig(),
	}
}

// LoopConfig 循环 pad 配置
type LoopConfig struct {
	CrossfadeMs    float64
	TargetPeakDBFS float64
	PadSec         float64 // 从源音频截取的 pad 长度，0 表示整段
}

// GradeThresholds 输出文件评级阈值
type GradeThresholds struct {
	MinRMSDB          float64
	ClippingTolerance float64
	MaxCrestFactor    float64
}

// DefaultGradeThresholds 返回默认评级阈值
func DefaultGradeThresholds() GradeThresholds {
	return GradeThresholds{
		MinRMSDB:          -60.0,
		ClippingTolerance: 0.0,
		MaxCrestFactor:    30.0,
	}
}

// BrightnessBounds 亮度标签的频谱质心边界
type BrightnessBounds struct {
	Enabled bool
	LowHz   float64
	HighHz  float64
}

// DefaultBrightnessBounds 返回默认亮度边界
func DefaultBrightnessBounds() BrightnessBounds {
	return BrightnessBounds{Enabled: true, LowHz: 1500, HighHz: 3500}
}

// AudioMetadata 音频元数据
type AudioMetadata struct {
	Title    string `json:"title,omitempty"`
	Artist   string `json:"artist,omitempty"`
	Album    string `json:"album,omitempty"`
	Year     string `json:"year,omitempty"`
	Genre    string `json:"genre,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// Quality 输出音频的质量指标
type Quality struct {
	RMSDB       float64  `json:"rmsDb"`
	Peak        float64  `json:"peak"`
	CrestFactor float64  `json:"crestFactor"`
	CentroidHz  float64  `json:"centroidHz"`
	LoopErrorDB *float64 `json:"loopErrorDb,omitempty"`
	Brightness  string   `json:"brightness,omitempty"`
	Grade       string   `json:"grade,omitempty"`
}

// OutputFile 单个输出文件
type OutputFile struct {
	Path     string  `json:"path"`
	Kind     string  `json:"kind"`
	Duration float64 `json:"duration"`
	Silent   bool    `json:"silent,omitempty"`
	Quality  Quality `json:"quality"`
}

// StabilitySummary 稳定性分析摘要
type StabilitySummary struct {
	Windows         int     `json:"windows"`
	StableWindows   int     `json:"stableWindows"`
	StableRuns      int     `json:"stableRuns"`
	LongestRunSec   float64 `json:"longestRunSec"`
	FallbackUsed    bool    `json:"fallbackUsed"`
	FallbackWindows int     `json:"fallbackWindows,omitempty"`
}

// FileResult 单个源文件的处理结果
type FileResult struct {
	FilePath   string            `json:"filePath"`
	Format     string            `json:"format"`
	Metadata   AudioMetadata     `json:"metadata"`
	Status     string            `json:"status"` // "OK", "SILENT", "ERROR"
	SampleRate int               `json:"sampleRate"`
	BitDepth   int               `json:"bitDepth"`
	Channels   int               `json:"channels"`
	Duration   float64           `json:"duration"`
	Stability  *StabilitySummary `json:"stability,omitempty"`
	Outputs    []OutputFile      `json:"outputs,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// AudioFile 音频文件接口
type AudioFile interface {
	GetFormat() string
	GetSampleRate() int
	GetBitDepth() int
	GetChannels() int
	GetDuration() time.Duration
	GetSamples() ([]float64, error) // 交错排列的多声道采样
	GetMetadata() AudioMetadata
	Close() error
}
