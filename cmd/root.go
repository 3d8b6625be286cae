package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"afterglow-engine/internal/batch"
	"afterglow-engine/internal/config"
	"afterglow-engine/internal/decoder"
	"afterglow-engine/internal/manifest"
	"afterglow-engine/internal/types"

	"github.com/spf13/cobra"
)

var (
	configPath   string
	outputDir    string
	seed         int64
	monoMethod   string
	sampleRate   int
	manifestPath string
	concurrency  int
	quiet        bool
	jsonOutput   bool
	verbose      bool
	version      = "0.3.0"
)

var rootCmd = &cobra.Command{
	Use:   "afterglow",
	Short: "从现场录音中提取稳定片段，生成颗粒云和无缝循环",
	Long: `Afterglow 分析录音中声学上稳定的区间，从中挑选颗粒并重新合成：
  cloud    颗粒云：移调、加窗、重叠相加后归一化
  loop     无缝循环：寻找最佳接缝并做等功率交叉淡化
  analyze  只做稳定性分析，输出每个文件的稳定窗口统计

支持 WAV, FLAC, MP3, Ogg Vorbis, AIFF 输入，输出为 16/24 位单声道 WAV。`,
	SilenceUsage: true,
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "YAML 配置文件")
	flags.StringVarP(&outputDir, "out", "o", "export", "输出目录")
	flags.Int64Var(&seed, "seed", 0, "随机种子，不设置时每次结果不同")
	flags.StringVar(&monoMethod, "mono", "", "立体声转单声道方式: average, sum, left, right")
	flags.IntVar(&sampleRate, "sample-rate", 0, "处理采样率 (Hz)，默认取配置文件")
	flags.StringVar(&manifestPath, "manifest", "", "SQLite 清单路径，默认为 <out>/manifest.db")
	flags.IntVarP(&concurrency, "concurrency", "j", runtime.NumCPU(), "并发处理文件数量")
	flags.BoolVarP(&quiet, "quiet", "q", false, "静默模式，仅输出生成的文件路径")
	flags.BoolVar(&jsonOutput, "json", false, "以JSON格式输出结果")
	flags.BoolVar(&verbose, "verbose", false, "输出每个文件的分析细节")

	rootCmd.SetVersionTemplate("afterglow version {{.Version}}\n")
	rootCmd.Version = version

	rootCmd.AddCommand(cloudCmd, loopCmd, analyzeCmd)
}

// loadBatchConfig 读取配置文件并叠加命令行参数
func loadBatchConfig(cmd *cobra.Command, mode types.Mode) (*types.BatchConfig, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	bc := cfg.BatchConfig(mode)
	bc.OutputDir = outputDir
	bc.Concurrency = concurrency
	bc.Quiet = quiet
	bc.JSONOutput = jsonOutput
	bc.Verbose = verbose

	flags := cmd.Flags()
	if flags.Changed("seed") {
		s := seed
		bc.Cloud.Seed = &s
	}
	if flags.Changed("mono") {
		bc.MonoMethod = types.MonoMethod(monoMethod)
		if !bc.MonoMethod.Valid() {
			return nil, fmt.Errorf("未知的单声道化方式: %s", monoMethod)
		}
	}
	if flags.Changed("sample-rate") {
		if sampleRate <= 0 {
			return nil, fmt.Errorf("采样率必须为正数: %d", sampleRate)
		}
		bc.SampleRate = sampleRate
	}

	if mode != types.ModeAnalyze {
		bc.ManifestPath = manifestPath
		if bc.ManifestPath == "" {
			bc.ManifestPath = filepath.Join(bc.OutputDir, "manifest.db")
		}
	}
	return bc, nil
}

// runBatch 收集文件并交给批处理器
func runBatch(bc *types.BatchConfig, targetPath string) error {
	// 检查路径是否存在
	if _, err := os.Stat(targetPath); os.IsNotExist(err) {
		return fmt.Errorf("路径不存在: %s", targetPath)
	}

	var opts []batch.Option
	if bc.ManifestPath != "" {
		store, err := manifest.Open(bc.ManifestPath)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, batch.WithSink(store))
	}

	processor := batch.NewProcessor(bc, opts...)

	skip := ""
	if bc.Mode != types.ModeAnalyze {
		skip = bc.OutputDir
	}
	files, err := collectAudioFiles(targetPath, processor.Registry(), skip)
	if err != nil {
		return fmt.Errorf("收集音频文件失败: %w", err)
	}

	if len(files) == 0 {
		fmt.Println("未找到支持的音频文件")
		return nil
	}

	results, err := processor.ProcessFiles(files)
	if err != nil {
		return err
	}
	if n := batch.Failed(results); n > 0 {
		return fmt.Errorf("%d 个文件处理失败", n)
	}
	return nil
}

// collectAudioFiles 递归收集可解码的文件，跳过输出目录
func collectAudioFiles(path string, registry *decoder.Registry, skipDir string) ([]string, error) {
	var files []string
	skipAbs := ""
	if skipDir != "" {
		if abs, err := filepath.Abs(skipDir); err == nil {
			skipAbs = abs
		}
	}

	err := filepath.Walk(path, func(filePath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if abs, err := filepath.Abs(filePath); err == nil && abs == skipAbs && filePath != path {
				return filepath.SkipDir
			}
			return nil
		}

		if registry.Supports(filePath) {
			files = append(files, filePath)
		}

		return nil
	})

	return files, err
}
