package main

import (
	"fmt"

	"quiz_bank_backend/pkg/database"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "执行数据库迁移并输出当前版本",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		core, err := openCore()
		if err != nil {
			return err
		}
		defer core.Close()

		version, err := database.CurrentSchemaVersion(core.DB)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema version %d/%d\n", version, database.LatestSchemaVersion())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
