package analyzer

import (
	"fmt"
	"math"
	"sort"

	"afterglow-engine/internal/types"
)

// Mask 每个分析窗口是否可用
type Mask []bool

// Count 返回为 true 的窗口数
func (m Mask) Count() int {
	n := 0
	for _, v := range m {
		if v {
			n++
		}
	}
	return n
}

// Run 连续为 true 的窗口区间 [Start, End)
type Run struct {
	Start int
	End   int
}

// Len 返回区间包含的窗口数
func (r Run) Len() int {
	return r.End - r.Start
}

// Runs 返回掩码中所有连续为 true 的区间
func Runs(mask Mask) []Run {
	var runs []Run
	start := -1
	for i, v := range mask {
		switch {
		case v && start < 0:
			start = i
		case !v && start >= 0:
			runs = append(runs, Run{Start: start, End: i})
			start = -1
		}
	}
	if start >= 0 {
		runs = append(runs, Run{Start: start, End: len(mask)})
	}
	return runs
}

// FilterRuns 去掉长度小于 minRun 的连续区间；minRun <= 1 时原样返回副本
func FilterRuns(mask Mask, minRun int) Mask {
	out := make(Mask, len(mask))
	copy(out, mask)
	if minRun <= 1 {
		return out
	}
	for _, r := range Runs(mask) {
		if r.Len() >= minRun {
			continue
		}
		for i := r.Start; i < r.End; i++ {
			out[i] = false
		}
	}
	return out
}

func validateThresholds(th types.Thresholds) error {
	if th.MinRMSDB > th.MaxRMSDB {
		return fmt.Errorf("RMS 下限 %.1f dB 高于上限 %.1f dB: %w", th.MinRMSDB, th.MaxRMSDB, ErrInvalidThresholds)
	}
	if th.MinStableWindows < 1 {
		return fmt.Errorf("最少连续窗口数必须 >= 1: %d: %w", th.MinStableWindows, ErrInvalidThresholds)
	}
	if th.CentroidLowHz > 0 && th.CentroidHighHz > 0 && th.CentroidLowHz > th.CentroidHighHz {
		return fmt.Errorf("频谱质心区间颠倒: %.0f > %.0f Hz: %w", th.CentroidLowHz, th.CentroidHighHz, ErrInvalidThresholds)
	}
	return nil
}

// levelOK RMS、直流和峰值因子三项门限
func levelOK(row Row, th types.Thresholds) bool {
	return row.RMSDB >= th.MinRMSDB &&
		row.RMSDB <= th.MaxRMSDB &&
		row.DCOffset < th.MaxDCOffset &&
		row.Crest < th.MaxCrestFactor
}

func centroidOK(row Row, th types.Thresholds) bool {
	if th.CentroidLowHz > 0 && row.CentroidHz < th.CentroidLowHz {
		return false
	}
	if th.CentroidHighHz > 0 && row.CentroidHz > th.CentroidHighHz {
		return false
	}
	return true
}

// StableMask 按阈值逐窗判定后做游程过滤
//
// 结果只依赖缓存的指标行和本次阈值，同一网格可以反复用不同阈值调用。
func (g *Grid) StableMask(th types.Thresholds) (Mask, error) {
	if err := validateThresholds(th); err != nil {
		return nil, err
	}

	mask := make(Mask, len(g.Rows))
	for i, row := range g.Rows {
		mask[i] = levelOK(row, th) &&
			row.OnsetRate <= th.MaxOnsetRateHz &&
			centroidOK(row, th)
	}
	return FilterRuns(mask, th.MinStableWindows), nil
}

// FallbackMask 在通过电平门限的窗口中按瞬态密度升序保留前 fraction 比例
//
// 保留数量为 ceil(fraction × 窗口总数)，不超过通过门限的窗口数；密度相同时靠前的窗口优先。
func (g *Grid) FallbackMask(th types.Thresholds, fraction float64) (Mask, error) {
	if err := validateThresholds(th); err != nil {
		return nil, err
	}
	if fraction <= 0 || fraction > 1 {
		return nil, fmt.Errorf("回退比例必须在 (0,1] 内: %.3f: %w", fraction, ErrInvalidThresholds)
	}

	var candidates []int
	for i, row := range g.Rows {
		if levelOK(row, th) {
			candidates = append(candidates, i)
		}
	}

	mask := make(Mask, len(g.Rows))
	if len(candidates) == 0 {
		return mask, nil
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return g.Rows[candidates[a]].OnsetRate < g.Rows[candidates[b]].OnsetRate
	})

	keep := int(math.Ceil(fraction * float64(len(g.Rows))))
	keep = max(1, min(keep, len(candidates)))
	for _, i := range candidates[:keep] {
		mask[i] = true
	}
	return mask, nil
}

// Summary 汇总掩码信息
func (g *Grid) Summary(primary, fallback Mask) types.StabilitySummary {
	summary := types.StabilitySummary{
		Windows:       len(g.Rows),
		StableWindows: primary.Count(),
	}
	runs := Runs(primary)
	summary.StableRuns = len(runs)
	for _, r := range runs {
		start, _ := g.Span(r.Start)
		_, end := g.Span(r.End - 1)
		summary.LongestRunSec = math.Max(summary.LongestRunSec, g.Seconds(end-start))
	}
	if len(runs) == 0 && fallback != nil {
		summary.FallbackUsed = true
		summary.FallbackWindows = fallback.Count()
	}
	return summary
}

// Stability 一次预分析的网格、掩码和汇总
type Stability struct {
	Grid     *Grid
	Primary  Mask
	Fallback Mask // 只在主掩码为空时计算
	Summary  types.StabilitySummary
}

// Stability 按预分析配置取网格并计算掩码，网格按 (窗长, 跳长) 缓存
func (a *Analyzer) Stability(cfg types.AnalysisConfig) (*Stability, error) {
	grid, err := a.Grid(cfg.WindowSec, cfg.HopSec)
	if err != nil {
		return nil, err
	}
	primary, err := grid.StableMask(cfg.Thresholds)
	if err != nil {
		return nil, err
	}

	var fallback Mask
	if primary.Count() == 0 && grid.Len() > 0 {
		fallback, err = grid.FallbackMask(cfg.Thresholds, cfg.FallbackFraction)
		if err != nil {
			return nil, err
		}
	}

	return &Stability{
		Grid:     grid,
		Primary:  primary,
		Fallback: fallback,
		Summary:  grid.Summary(primary, fallback),
	}, nil
}
