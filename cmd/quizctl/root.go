package main

import (
	"fmt"
	"os"

	"quiz_bank_backend/internal/app"
	"quiz_bank_backend/internal/config"
	"quiz_bank_backend/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	configDir string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "quizctl",
	Short: "题库离线管理工具",
	Long: `quizctl 直接操作题库数据库：批量导入题库文件、导出错题本和收藏、
执行数据库迁移以及签发访问令牌。`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configDir, "config", "c", "configs", "config.yaml 所在目录")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "输出运行日志")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		logger.InitLogger(cfg)
	}
	return cfg, nil
}

// openCore 命令行总是先迁移再操作
func openCore() (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	cfg.ForceMigrate = true
	return app.NewCore(cfg)
}
