package api

import (
	"github.com/coverbay/coverbay/config"
	apidiff "github.com/coverbay/coverbay/pkg/api/diff"
	"github.com/coverbay/coverbay/pkg/api/files"
	"github.com/coverbay/coverbay/pkg/api/health"
	"github.com/coverbay/coverbay/pkg/api/middleware"
	"github.com/coverbay/coverbay/pkg/api/packages"
	"github.com/coverbay/coverbay/pkg/api/report"
	"github.com/coverbay/coverbay/pkg/api/upload"
	"github.com/coverbay/coverbay/pkg/core"
	"github.com/coverbay/coverbay/pkg/lumber"
	"github.com/coverbay/coverbay/pkg/service/aggregator"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router for the coverage engine API
type Router struct {
	logger     lumber.Logger
	cfg        *config.EngineConfig
	store      core.CoverageStore
	ingestor   core.Ingestor
	differ     core.DiffService
	aggregator *aggregator.Aggregator
	authorizer core.Authorizer
}

// NewRouter returns instance of Router
func NewRouter(cfg *config.EngineConfig,
	logger lumber.Logger,
	store core.CoverageStore,
	ingestor core.Ingestor,
	differ core.DiffService,
	agg *aggregator.Aggregator,
	authorizer core.Authorizer) Router {
	return Router{
		logger:     logger,
		cfg:        cfg,
		store:      store,
		ingestor:   ingestor,
		differ:     differ,
		aggregator: agg,
		authorizer: authorizer,
	}
}

// Handler function will perform all route operations
func (r Router) Handler() *gin.Engine {
	r.logger.Infof("Setting up routes")
	router := gin.Default()
	router.GET("/health", health.Handler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	scoped := router.Group("/:org/repos/:repo", middleware.Authorize(r.authorizer, r.logger))
	scoped.POST("/commits/:commit/reports", upload.Handler(r.logger, r.ingestor))
	scoped.GET("/commits/:commit/report", report.Handler(r.logger, r.store))
	scoped.GET("/commits/:commit/files", files.Handler(r.logger, r.store))
	scoped.GET("/commits/:commit/packages", packages.Handler(r.logger, r.store, r.aggregator, r.cfg.PackageDepth))
	scoped.GET("/commits/:commit/diff", apidiff.Handler(r.logger, r.differ))

	return router
}
