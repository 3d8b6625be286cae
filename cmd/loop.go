package cmd

import (
	"fmt"

	"afterglow-engine/internal/types"

	"github.com/spf13/cobra"
)

var (
	crossfadeMs float64
	padSec      float64
)

var loopCmd = &cobra.Command{
	Use:   "loop [path]",
	Short: "寻找最佳接缝，生成无缝循环",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bc, err := loadBatchConfig(cmd, types.ModeLoop)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("crossfade") {
			if crossfadeMs < 0 {
				return fmt.Errorf("交叉淡化时长不能为负: %.1f ms", crossfadeMs)
			}
			bc.Loop.CrossfadeMs = crossfadeMs
		}
		if cmd.Flags().Changed("length") {
			if padSec < 0 {
				return fmt.Errorf("pad 长度不能为负: %.2f s", padSec)
			}
			bc.Loop.PadSec = padSec
		}
		return runBatch(bc, args[0])
	},
}

func init() {
	loopCmd.Flags().Float64Var(&crossfadeMs, "crossfade", 100, "交叉淡化时长 (ms)")
	loopCmd.Flags().Float64Var(&padSec, "length", 2, "从稳定区间截取的 pad 长度 (s)，0 表示整段")
}
