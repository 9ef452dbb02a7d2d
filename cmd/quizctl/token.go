package main

import (
	"fmt"

	"quiz_bank_backend/internal/service"

	"github.com/spf13/cobra"
)

var tokenDeviceID string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "设备密钥与访问令牌",
}

var tokenHashCmd = &cobra.Command{
	Use:   "hash [device-key]",
	Short: "生成 auth.device_key_hash 配置值",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := service.HashDeviceKey(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue [device-key]",
	Short: "校验设备密钥并签发 JWT",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		token, err := service.NewAuthService(cfg).IssueToken(tokenDeviceID, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenHashCmd, tokenIssueCmd)

	tokenIssueCmd.Flags().StringVarP(&tokenDeviceID, "device", "d", "", "设备标识，缺省为 default")
}
