package grain

import (
	"math"

	"afterglow-engine/internal/analyzer"
)

// PickPad 为长度 padLen 的循环 pad 选择起点
//
// 候选起点是掩码中为真的窗口起点，且整个 pad 不越过音频结尾。
// 候选按 pad 内完整窗口的平均瞬态密度升序排列，相同时取最靠前的。
// 主掩码没有候选时用回退掩码；两者都没有时在全部窗口中取平均电平最高的，状态为 StatusLoudest。
// 结果只由网格和掩码决定，不消耗随机数。
func PickPad(grid *analyzer.Grid, primary, fallback analyzer.Mask, padLen int) Pick {
	if grid == nil || padLen <= 0 || padLen > grid.Length {
		return Pick{Status: StatusOutOfRange}
	}

	quietest := func(r analyzer.Row) float64 { return r.OnsetRate }
	if offset, ok := bestPad(grid, primary, padLen, quietest); ok {
		return Pick{Offset: offset, Status: StatusFound}
	}
	if offset, ok := bestPad(grid, fallback, padLen, quietest); ok {
		return Pick{Offset: offset, Status: StatusFoundViaFallback}
	}

	all := make(analyzer.Mask, grid.Len())
	for i := range all {
		all[i] = true
	}
	loudest := func(r analyzer.Row) float64 { return -r.RMSDB }
	if offset, ok := bestPad(grid, all, padLen, loudest); ok {
		return Pick{Offset: offset, Status: StatusLoudest}
	}
	return Pick{Offset: 0, Status: StatusLoudest}
}

// bestPad 返回 cost 平均值最小的候选起点
func bestPad(grid *analyzer.Grid, mask analyzer.Mask, padLen int, cost func(analyzer.Row) float64) (int, bool) {
	best, bestCost := -1, math.Inf(1)
	for i, row := range grid.Rows {
		if i >= len(mask) || !mask[i] {
			continue
		}
		start := row.Start
		end := start + padLen
		if end > grid.Length {
			break
		}

		sum, count := 0.0, 0
		for j := i; j < len(grid.Rows) && grid.Rows[j].Start+grid.Window <= end; j++ {
			sum += cost(grid.Rows[j])
			count++
		}
		c := cost(row)
		if count > 0 {
			c = sum / float64(count)
		}
		if c < bestCost {
			best, bestCost = start, c
		}
	}
	return best, best >= 0
}
