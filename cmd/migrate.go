package cmd

import (
	"context"

	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/spf13/cobra"

	"github.com/z-Shi/TangoWithDjango/internal/web/rango/model"
	"github.com/z-Shi/TangoWithDjango/library/log"
)

var migrateCMD = &cobra.Command{
	Use:   "migrate",
	Short: "migrate",
	Long:  `migrate rango tables`,
	Args:  gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		db, err := openDB(context.Background())
		if err != nil {
			log.Logger.Panic("open db", zap.Error(err))
		}

		if err := model.Migrate(db); err != nil {
			log.Logger.Panic("migrate", zap.Error(err))
		}
		log.Logger.Info("migrate done")
	},
}

func init() {
	rootCMD.AddCommand(migrateCMD)
}
