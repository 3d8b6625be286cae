package batch

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"afterglow-engine/internal/manifest"
	"afterglow-engine/internal/types"
)

// outputResult 输出单个处理结果
func (p *Processor) outputResult(result *types.FileResult) {
	// 静默模式，只输出生成的文件路径
	if p.config.Quiet {
		for _, out := range result.Outputs {
			fmt.Fprintln(p.stdout, out.Path)
		}
		return
	}

	// JSON输出格式
	if p.config.JSONOutput {
		jsonData, err := json.Marshal(result)
		if err != nil {
			fmt.Fprintf(p.stderr, "JSON序列化失败: %v\n", err)
			return
		}
		fmt.Fprintln(p.stdout, string(jsonData))
		return
	}

	p.printDetailedResult(result)
}

// printDetailedResult 打印详细结果
func (p *Processor) printDetailedResult(result *types.FileResult) {
	w := p.stdout
	fmt.Fprintf(w, "\n=== %s ===\n", filepath.Base(result.FilePath))
	fmt.Fprintf(w, "路径: %s\n", result.FilePath)
	fmt.Fprintf(w, "格式: %s\n", result.Format)
	fmt.Fprintf(w, "状态: %s\n", result.Status)

	if result.Error != "" {
		fmt.Fprintf(w, "错误: %s\n", result.Error)
		return
	}

	// 基本信息
	fmt.Fprintf(w, "采样率: %d Hz\n", result.SampleRate)
	fmt.Fprintf(w, "位深度: %d bit\n", result.BitDepth)
	fmt.Fprintf(w, "声道数: %d\n", result.Channels)
	fmt.Fprintf(w, "时长: %.2f 秒\n", result.Duration)

	// 元数据
	if result.Metadata.Title != "" {
		fmt.Fprintf(w, "标题: %s\n", result.Metadata.Title)
	}
	if result.Metadata.Artist != "" {
		fmt.Fprintf(w, "艺术家: %s\n", result.Metadata.Artist)
	}

	if s := result.Stability; s != nil {
		fmt.Fprintf(w, "稳定窗口: %d/%d，%d 段，最长 %.1f 秒\n",
			s.StableWindows, s.Windows, s.StableRuns, s.LongestRunSec)
		if s.FallbackUsed {
			fmt.Fprintf(w, "无稳定区间，按瞬态密度回退到 %d 个窗口\n", s.FallbackWindows)
		}
	}

	for _, out := range result.Outputs {
		q := out.Quality
		fmt.Fprintf(w, "输出: %s [%s] %.2f 秒, RMS %.1f dB, 峰值 %.3f, 波峰因数 %.2f",
			filepath.Base(out.Path), q.Grade, out.Duration, q.RMSDB, q.Peak, q.CrestFactor)
		if q.Brightness != "" {
			fmt.Fprintf(w, ", %s", q.Brightness)
		}
		if q.LoopErrorDB != nil {
			fmt.Fprintf(w, ", 接缝 %.1f dB", *q.LoopErrorDB)
		}
		if out.Silent {
			fmt.Fprint(w, " (静音)")
		}
		fmt.Fprintln(w)
	}
}

// printSummary 打印统计摘要
func (p *Processor) printSummary(results []*types.FileResult) {
	total := len(results)
	ok, silent, errs, outputs := 0, 0, 0, 0
	grades := map[string]int{}

	for _, result := range results {
		switch result.Status {
		case StatusOK:
			ok++
		case StatusSilent:
			silent++
		case StatusError:
			errs++
		}
		for _, out := range result.Outputs {
			outputs++
			grades[out.Quality.Grade]++
		}
	}

	w := p.stdout
	fmt.Fprintf(w, "\n=== 处理统计 ===\n")
	fmt.Fprintf(w, "总文件数: %d\n", total)
	fmt.Fprintf(w, "成功: %d\n", ok)
	if silent > 0 {
		fmt.Fprintf(w, "静音源: %d\n", silent)
	}
	if errs > 0 {
		fmt.Fprintf(w, "错误文件: %d\n", errs)
	}
	if outputs > 0 {
		fmt.Fprintf(w, "输出文件: %d (A %d / B %d / F %d)\n", outputs,
			grades[manifest.GradeA], grades[manifest.GradeB], grades[manifest.GradeF])
	}
}

// Failed 统计处理失败的文件数
func Failed(results []*types.FileResult) int {
	n := 0
	for _, r := range results {
		if r.Status == StatusError {
			n++
		}
	}
	return n
}
