package cmd

import (
	"afterglow-engine/internal/types"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [path]",
	Short: "只做稳定性分析",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bc, err := loadBatchConfig(cmd, types.ModeAnalyze)
		if err != nil {
			return err
		}
		return runBatch(bc, args[0])
	},
}
