package cmd

import (
	"context"

	errors "github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	gcmd "github.com/Laisky/go-utils/v6/cmd"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/z-Shi/TangoWithDjango/internal/mcp"
	"github.com/z-Shi/TangoWithDjango/internal/web"
	"github.com/z-Shi/TangoWithDjango/internal/web/rango/controller"
	"github.com/z-Shi/TangoWithDjango/internal/web/rango/dao"
	"github.com/z-Shi/TangoWithDjango/internal/web/rango/model"
	"github.com/z-Shi/TangoWithDjango/internal/web/rango/service"
	"github.com/z-Shi/TangoWithDjango/library/config"
	"github.com/z-Shi/TangoWithDjango/library/log"
)

var apiCMD = &cobra.Command{
	Use:   "api",
	Short: "api",
	Long:  `rango HTTP API with web search and MCP tools`,
	Args:  gcmd.NoExtraArgs,
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		if err := runAPI(cmd.Context()); err != nil {
			log.Logger.Panic("run api", zap.Error(err))
		}
	},
}

func init() {
	rootCMD.AddCommand(apiCMD)
}

func runAPI(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !gconfig.Shared.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := openDB(ctx)
	if err != nil {
		return errors.Wrap(err, "open db")
	}
	if err := model.Migrate(db); err != nil {
		return errors.Wrap(err, "migrate")
	}

	d, err := dao.New(log.Logger.Named("rango_dao"), db)
	if err != nil {
		return errors.Wrap(err, "new rango dao")
	}
	svc, err := service.New(d, log.Logger.Named("rango_service"), nil)
	if err != nil {
		return errors.Wrap(err, "new rango service")
	}

	engine, err := newSearchEngine()
	if err != nil {
		return errors.Wrap(err, "new search engine")
	}
	tracker, err := newVisitTracker()
	if err != nil {
		return errors.Wrap(err, "new visit tracker")
	}

	ctl, err := controller.New(svc, engine,
		controller.WithTracker(tracker),
		controller.WithLogger(log.Logger.Named("rango_controller")),
	)
	if err != nil {
		return errors.Wrap(err, "new rango controller")
	}

	sessions, closeSessions, err := newSessionStore(ctx)
	if err != nil {
		return errors.Wrap(err, "new session store")
	}
	defer func() {
		if err := closeSessions(); err != nil {
			log.Logger.Warn("close session store", zap.Error(err))
		}
	}()

	opt := web.Options{
		Rango:          ctl,
		Sessions:       sessions,
		SessionConfig:  newSessionConfig(),
		AllowedOrigins: config.StringSlice("settings.web.allowed_origins", nil),
		Logger:         log.Logger.Named("web"),
	}

	if config.Bool("settings.mcp.enabled", true) {
		mcpServer, err := mcp.NewServer(engine, svc,
			mcp.LoadToolsSettingsFromConfig(), log.Logger.Named("mcp"))
		if err != nil {
			return errors.Wrap(err, "new mcp server")
		}
		opt.MCP = mcpServer.Handler()
	}

	server, err := web.NewServer(opt)
	if err != nil {
		return errors.Wrap(err, "new web server")
	}

	log.Logger.Info("rango api ready",
		zap.String("search_engine", engine.Name()),
		zap.String("visit_policy", string(tracker.Policy())),
		zap.Bool("mcp", opt.MCP != nil))
	return web.RunServer(gconfig.Shared.GetString("listen"), server)
}
