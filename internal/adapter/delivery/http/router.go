package http

import (
	"time"

	handler "icon-resolver/internal/adapter/handler/http"

	"github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
)

// RegisterRoutes sets up the icon, rpc node, metrics and health routes.
func RegisterRoutes(
	r *router.Router,
	icons *handler.IconHandler,
	nodes *handler.NodeHandler,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
) {
	logger.Info("Setting up application-specific routes...")

	r.GET("/assets/icon/check", icons.Check)
	r.POST("/assets/icon/check", icons.Check)
	r.POST("/assets/icon/refresh", icons.Refresh)
	r.GET("/assets/icon", icons.Get)
	r.PUT("/assets/icon", icons.Upload)
	r.GET("/rpc/{blockchain}/nodes", nodes.GetNodes)

	logger.Info("Setting up metrics and health check routes...")
	r.GET("/metrics", fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	r.GET("/health", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("OK")
	})

	logger.Info("All routes registered.")
}

// RequestLogger logs every request with its status and duration.
func RequestLogger(next fasthttp.RequestHandler, logger *zap.Logger) fasthttp.RequestHandler {
	logger = logger.Named("HTTP")
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		next(ctx)
		logger.Debug("Request handled",
			zap.ByteString("method", ctx.Method()),
			zap.ByteString("uri", ctx.RequestURI()),
			zap.Int("status", ctx.Response.StatusCode()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
