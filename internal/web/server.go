// Package web gin server
package web

import (
	"net/http"
	"net/url"
	"strings"

	errors "github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v7"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/z-Shi/TangoWithDjango/internal/web/rango/controller"
	"github.com/z-Shi/TangoWithDjango/internal/web/session"
	"github.com/z-Shi/TangoWithDjango/library/log"
)

const (
	// RangoPrefix is where the rango routes are mounted.
	RangoPrefix = "/rango"
	// MCPPath is where the MCP handler is mounted.
	MCPPath = "/mcp"
)

// Options wires the components served by NewServer.
type Options struct {
	Rango         *controller.Controller
	Sessions      session.Store
	SessionConfig session.Config
	// MCP is mounted under MCPPath when not nil.
	MCP http.Handler
	// AllowedOrigins lists the host suffixes allowed by CORS.
	// A suffix matches the host itself and every subdomain of it.
	AllowedOrigins []string
	Logger         logSDK.Logger
}

// NewServer builds the gin engine serving health, metrics, rango and MCP.
func NewServer(opt Options) (*gin.Engine, error) {
	if opt.Rango == nil {
		return nil, errors.New("rango controller is required")
	}
	if opt.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	if opt.Logger == nil {
		opt.Logger = log.Logger.Named("web")
	}

	server := gin.New()
	server.Use(
		gin.Recovery(),
		gmw.NewLoggerMiddleware(
			gmw.WithLogger(opt.Logger.Named("gin")),
		),
		allowCORS(opt.AllowedOrigins),
	)

	server.Any("/health", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "hello, world")
	})
	server.GET("/metrics", gin.WrapH(promhttp.Handler()))

	rango := server.Group(RangoPrefix,
		session.Middleware(opt.Sessions, opt.SessionConfig, opt.Logger.Named("session")))
	opt.Rango.Register(rango)

	if opt.MCP != nil {
		server.Any(MCPPath, gin.WrapH(opt.MCP))
	}

	return server, nil
}

// RunServer listens on addr until the server fails.
func RunServer(addr string, server *gin.Engine) error {
	log.Logger.Info("listening on http", zap.String("addr", addr))
	return errors.Wrap(server.Run(addr), "http server exit")
}

// allowCORS answers cross-origin requests whose host equals or is a
// subdomain of one of suffixes.
func allowCORS(suffixes []string) gin.HandlerFunc {
	allowed := make([]string, 0, len(suffixes))
	for _, suffix := range suffixes {
		suffix = strings.Trim(strings.ToLower(strings.TrimSpace(suffix)), ".")
		if suffix != "" {
			allowed = append(allowed, suffix)
		}
	}

	return func(ctx *gin.Context) {
		origin := ctx.Request.Header.Get("Origin")
		allowedOrigin := ""

		if origin != "" {
			parsedOriginURL, err := url.Parse(origin)
			if err == nil && originHostAllowed(parsedOriginURL.Hostname(), allowed) {
				allowedOrigin = origin
			}
		}

		if allowedOrigin != "" {
			ctx.Header("Access-Control-Allow-Origin", allowedOrigin)
			ctx.Header("Access-Control-Allow-Credentials", "true")
			ctx.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS, HEAD")
			ctx.Header("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, X-CSRF-Token, X-Requested-With, Mcp-Session-Id")
			ctx.Header("Access-Control-Max-Age", "86400") // 24 hours
			ctx.Header("Vary", "Origin")

			if ctx.Request.Method == http.MethodOptions {
				ctx.AbortWithStatus(http.StatusNoContent)
				return
			}
		} else if origin != "" && ctx.Request.Method == http.MethodOptions {
			// deny preflight from disallowed origins
			ctx.AbortWithStatus(http.StatusForbidden)
			return
		}

		ctx.Next()
	}
}

func originHostAllowed(host string, suffixes []string) bool {
	host = strings.ToLower(host)
	if host == "" {
		return false
	}
	for _, suffix := range suffixes {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}
	return false
}
