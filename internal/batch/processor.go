package batch

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"afterglow-engine/internal/analyzer"
	"afterglow-engine/internal/decoder"
	"afterglow-engine/internal/manifest"
	"afterglow-engine/internal/rng"
	"afterglow-engine/internal/synth"
	"afterglow-engine/internal/types"

	"github.com/schollz/progressbar/v3"
)

// 单个文件的处理状态
const (
	StatusOK     = "OK"
	StatusSilent = "SILENT"
	StatusError  = "ERROR"
)

// Processor 批量处理音频文件
type Processor struct {
	config   *types.BatchConfig
	registry *decoder.Registry
	sink     manifest.Sink
	stdout   io.Writer
	stderr   io.Writer
}

// Option 处理器选项
type Option func(*Processor)

// WithSink 把输出记录写入清单
func WithSink(sink manifest.Sink) Option {
	return func(p *Processor) {
		p.sink = sink
	}
}

// WithOutput 替换标准输出和标准错误
func WithOutput(stdout, stderr io.Writer) Option {
	return func(p *Processor) {
		p.stdout = stdout
		p.stderr = stderr
	}
}

// NewProcessor 创建新的处理器
func NewProcessor(config *types.BatchConfig, opts ...Option) *Processor {
	p := &Processor{
		config:   config,
		registry: decoder.NewRegistry(),
		stdout:   os.Stdout,
		stderr:   os.Stderr,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Registry 返回处理器使用的解码器注册表
func (p *Processor) Registry() *decoder.Registry {
	return p.registry
}

// ProcessFiles 并发处理多个文件，返回按路径排序的结果
//
// 单个文件失败只记录在结果中，不会中断其他文件。
func (p *Processor) ProcessFiles(filePaths []string) ([]*types.FileResult, error) {
	if p.config.Mode != types.ModeAnalyze && p.config.OutputDir != "" {
		if err := os.MkdirAll(p.config.OutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("创建输出目录失败: %w", err)
		}
	}

	// 创建进度条
	var bar *progressbar.ProgressBar
	if !p.config.Quiet && !p.config.JSONOutput {
		bar = progressbar.NewOptions(len(filePaths),
			progressbar.OptionSetWriter(p.stderr),
			progressbar.OptionSetDescription(fmt.Sprintf("处理音频文件 (%s)", p.config.Mode)),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(50),
			progressbar.OptionShowIts(),
		)
	}

	// 创建工作通道
	jobs := make(chan string, len(filePaths))
	results := make(chan *types.FileResult, len(filePaths))

	// 启动工作协程
	var wg sync.WaitGroup
	for i := 0; i < max(1, p.config.Concurrency); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for filePath := range jobs {
				results <- p.processFile(filePath)
				if bar != nil {
					bar.Add(1)
				}
			}
		}()
	}

	// 发送任务
	go func() {
		for _, filePath := range filePaths {
			jobs <- filePath
		}
		close(jobs)
	}()

	// 等待所有任务完成
	go func() {
		wg.Wait()
		close(results)
	}()

	// 收集并输出结果
	var allResults []*types.FileResult
	for result := range results {
		allResults = append(allResults, result)
		p.outputResult(result)
	}

	if bar != nil {
		bar.Finish()
		fmt.Fprintln(p.stderr)
	}

	if !p.config.Quiet && !p.config.JSONOutput {
		p.printSummary(allResults)
	}

	sort.Slice(allResults, func(i, j int) bool {
		return allResults[i].FilePath < allResults[j].FilePath
	})
	return allResults, nil
}

// logger 返回带文件名前缀的诊断输出，非 verbose 模式下什么也不做
func (p *Processor) logger(filePath string) func(format string, args ...any) {
	if !p.config.Verbose {
		return func(string, ...any) {}
	}
	prefix := "[" + filepath.Base(filePath) + "] "
	return func(format string, args ...any) {
		fmt.Fprintf(p.stderr, prefix+format+"\n", args...)
	}
}

// processFile 处理单个音频文件
func (p *Processor) processFile(filePath string) *types.FileResult {
	result := &types.FileResult{
		FilePath: filePath,
		Status:   StatusError,
	}
	logf := p.logger(filePath)

	// 解码音频文件
	audioFile, err := p.registry.DecodeFile(filePath)
	if err != nil {
		result.Error = fmt.Sprintf("解码失败: %v", err)
		return result
	}
	defer audioFile.Close()

	// 填充基本信息
	result.Format = audioFile.GetFormat()
	result.Metadata = audioFile.GetMetadata()
	result.SampleRate = audioFile.GetSampleRate()
	result.BitDepth = audioFile.GetBitDepth()
	result.Channels = audioFile.GetChannels()
	result.Duration = audioFile.GetDuration().Seconds()

	samples, err := p.loadMono(audioFile, logf)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	sampleRate := audioFile.GetSampleRate()
	if p.config.SampleRate > 0 {
		sampleRate = p.config.SampleRate
	}

	// 每个文件只建一个分析器，各模式共用其缓存的 STFT 和指标网格
	a, err := analyzer.New(samples, sampleRate)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	switch p.config.Mode {
	case types.ModeCloud:
		err = p.makeClouds(result, a, logf)
	case types.ModeLoop:
		err = p.makeLoop(result, a, logf)
	case types.ModeAnalyze:
		err = p.analyze(result, a, logf)
	default:
		err = fmt.Errorf("未知的处理模式: %q", p.config.Mode)
	}
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Status = StatusOK
	if len(result.Outputs) > 0 && allSilent(result.Outputs) {
		result.Status = StatusSilent
	}
	return result
}

// loadMono 读取采样，转成单声道并重采样到目标采样率
func (p *Processor) loadMono(audioFile types.AudioFile, logf func(string, ...any)) ([]float64, error) {
	interleaved, err := audioFile.GetSamples()
	if err != nil {
		return nil, fmt.Errorf("读取音频数据失败: %w", err)
	}

	mono, err := decoder.ToMono(interleaved, audioFile.GetChannels(), p.config.MonoMethod)
	if err != nil {
		return nil, fmt.Errorf("转换单声道失败: %w", err)
	}

	from, to := audioFile.GetSampleRate(), p.config.SampleRate
	if to > 0 && to != from {
		logf("重采样 %d Hz -> %d Hz", from, to)
		mono, err = decoder.Resample(mono, from, to)
		if err != nil {
			return nil, fmt.Errorf("重采样失败: %w", err)
		}
	}
	return mono, nil
}

// makeClouds 为一个源文件生成 CloudsPerSource 个颗粒云；有种子时第 i 个使用 seed+i
func (p *Processor) makeClouds(result *types.FileResult, a *analyzer.Analyzer, logf func(string, ...any)) error {
	engine := synth.NewEngine(rng.NewUnseeded(), synth.WithLogger(logf))
	stem := fileStem(result.FilePath)

	for i := 0; i < max(1, p.config.CloudsPerSource); i++ {
		cfg := p.config.Cloud
		if cfg.Seed != nil {
			seed := *cfg.Seed + int64(i)
			cfg.Seed = &seed
		}

		out, err := engine.SynthesizeCloudFrom(a, cfg)
		if err != nil {
			return fmt.Errorf("颗粒云合成失败: %w", err)
		}
		logf("云 %d: %d 颗粒, 尝试 %d 次, 拒绝 %d, 移调 %d, 稳定/回退/随机 %d/%d/%d",
			i+1, out.Stats.Grains, out.Stats.Attempts, out.Stats.Rejected, out.Stats.PitchShifted,
			out.Stats.Found, out.Stats.Fallback, out.Stats.Random)
		if result.Stability == nil {
			result.Stability = out.Stats.Stability
		}

		name := fmt.Sprintf("cloud_%s_%02d.wav", stem, i+1)
		if err := p.emit(result, out, "cloud", name, cfg.Seed); err != nil {
			return err
		}
	}
	return nil
}

// makeLoop 从稳定区间截取 pad 并生成无缝循环
func (p *Processor) makeLoop(result *types.FileResult, a *analyzer.Analyzer, logf func(string, ...any)) error {
	out, err := synth.SynthesizePad(a, p.config.Loop, p.config.Analysis)
	if err != nil {
		return fmt.Errorf("循环裁剪失败: %w", err)
	}
	if seg := out.Segment; seg != nil {
		logf("pad 片段 %.2fs 起 %.2fs (%s)", float64(seg.Offset)/float64(a.SampleRate()), float64(seg.Length)/float64(a.SampleRate()), seg.Status)
	}
	if out.Seam != nil {
		logf("接缝相关系数 %.3f, 裁剪 %d, 交叉淡化 %d", out.Seam.Correlation, out.Seam.Trim, out.Seam.Crossfade)
	}
	if result.Stability == nil {
		result.Stability = out.Stats.Stability
	}

	return p.emit(result, out, "loop", fmt.Sprintf("loop_%s.wav", fileStem(result.FilePath)), nil)
}

// analyze 只做稳定性分析
func (p *Processor) analyze(result *types.FileResult, a *analyzer.Analyzer, logf func(string, ...any)) error {
	st, err := a.Stability(p.config.Analysis)
	if err != nil {
		return fmt.Errorf("稳定性分析失败: %w", err)
	}

	summary := st.Summary
	logf("%d 个窗口, %d 个稳定, %d 段", summary.Windows, summary.StableWindows, summary.StableRuns)
	result.Stability = &summary
	return nil
}

// emit 评级、写文件并记录清单
func (p *Processor) emit(result *types.FileResult, out *synth.Output, kind, name string, seed *int64) error {
	q := out.Quality
	if p.config.Brightness.Enabled {
		q.Brightness = manifest.Brightness(q.CentroidHz, p.config.Brightness)
	}
	q.Grade = manifest.Grade(q, p.config.Grading)

	path := filepath.Join(p.config.OutputDir, name)
	saved := !(p.config.SkipGradeF && q.Grade == manifest.GradeF)
	if saved {
		if err := decoder.WriteWAV(path, out.Samples, out.SampleRate, p.config.BitDepth); err != nil {
			return fmt.Errorf("写入输出失败: %w", err)
		}
		result.Outputs = append(result.Outputs, types.OutputFile{
			Path:     path,
			Kind:     kind,
			Duration: out.Duration(),
			Silent:   out.Silent,
			Quality:  q,
		})
	}

	if p.sink == nil {
		return nil
	}
	return p.sink.Record(manifest.Entry{
		Filename:    name,
		Source:      filepath.Base(result.FilePath),
		Kind:        kind,
		DurationSec: out.Duration(),
		Quality:     q,
		Saved:       saved,
		Seed:        seed,
	})
}

func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func allSilent(outputs []types.OutputFile) bool {
	for _, o := range outputs {
		if !o.Silent {
			return false
		}
	}
	return true
}
