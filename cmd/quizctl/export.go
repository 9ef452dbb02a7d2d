package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export [wrong_book|favorite]",
	Short: "导出错题本或收藏为 JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		core, err := openCore()
		if err != nil {
			return err
		}
		defer core.Close()

		result, err := core.Services.Export.Export(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(result.Envelope, "", "  ")
		if err != nil {
			return err
		}

		if exportOutput == "" {
			_, err = cmd.OutOrStdout().Write(append(data, '\n'))
			return err
		}
		if err := os.WriteFile(exportOutput, data, 0644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "✅ 已导出 %d 题到 %s\n", len(result.Envelope.Questions), exportOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "输出文件，缺省写到标准输出")
}
