package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"quiz_bank_backend/internal/service"
	"quiz_bank_backend/internal/util"

	"github.com/spf13/cobra"
)

var (
	importFolder uint
	importBackup bool
)

var importCmd = &cobra.Command{
	Use:   "import [files...]",
	Short: "导入题库文件（xlsx/docx/txt）或备份 JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		core, err := openCore()
		if err != nil {
			return err
		}
		defer core.Close()

		ctx := cmd.Context()
		if importBackup {
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				env, err := service.DecodeEnvelope(data)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				result, err := core.Services.Import.ImportEnvelope(ctx, env)
				printImportResult(cmd, result)
				if err != nil {
					return err
				}
			}
			return nil
		}

		maxBytes := int64(core.Config.Import.MaxFileSizeMB) << 20
		files := make([]service.ImportFile, 0, len(args))
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			name := filepath.Base(path)
			if err := util.ValidateImportFile(name, data, core.Config.Import.AllowedExts, maxBytes); err != nil {
				files = append(files, service.ImportFile{Name: name, Rejected: err})
				continue
			}
			files = append(files, service.ImportFile{Name: name, Data: data})
		}

		var opts service.ImportOptions
		if importFolder != 0 {
			opts.FolderID = &importFolder
		}
		result, err := core.Services.Import.Import(ctx, files, opts)
		printImportResult(cmd, result)

		// 重复文件只是提示
		var dup *service.DuplicateFilesError
		if errors.As(err, &dup) {
			return nil
		}
		return err
	},
}

func printImportResult(cmd *cobra.Command, result *service.ImportResult) {
	if result == nil {
		return
	}
	out := cmd.OutOrStdout()
	for _, f := range result.Files {
		fmt.Fprintf(out, "✅ %s: %d 题\n", f.FileName, f.Imported)
	}
	for _, name := range result.Duplicates {
		fmt.Fprintf(out, "⚠️ %s: 已存在同名文件，跳过\n", name)
	}
	for _, f := range result.Failures {
		fmt.Fprintf(out, "❌ %s: %s\n", f.FileName, f.Reason)
	}
	fmt.Fprintf(out, "共导入 %d 题\n", result.Total)
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().UintVarP(&importFolder, "folder", "f", 0, "导入后放入的文件夹 ID")
	importCmd.Flags().BoolVar(&importBackup, "backup", false, "参数是导出的备份 JSON")
}
