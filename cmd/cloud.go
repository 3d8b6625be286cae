package cmd

import (
	"afterglow-engine/internal/types"

	"github.com/spf13/cobra"
)

var cloudCount int

var cloudCmd = &cobra.Command{
	Use:   "cloud [path]",
	Short: "从稳定区间取颗粒，合成颗粒云",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bc, err := loadBatchConfig(cmd, types.ModeCloud)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("count") {
			bc.CloudsPerSource = cloudCount
		}
		return runBatch(bc, args[0])
	},
}

func init() {
	cloudCmd.Flags().IntVarP(&cloudCount, "count", "n", 2, "每个源文件生成的颗粒云数量")
}
