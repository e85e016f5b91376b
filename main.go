package main

import (
	"log"
	"strings"
	"time"

	"server/assets"
	"server/config"
	"server/db"
	"server/handlers"
	"server/models"
	"server/storage"
	"server/transformer"
	"server/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/autotls"
	"github.com/gin-gonic/gin"
)

func main() {
	db.Init()
	models.Init()
	storage.Init()

	client := transformer.NewClient(config.TRANSFORMER_URL,
		time.Duration(config.TRANSFORMER_TIMEOUT_SECONDS)*time.Second)
	handlers.Init(assets.NewService(client))

	if !config.DEBUG_MODE {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	_ = router.SetTrustedProxies([]string{})
	if config.DEBUG_MODE {
		router.Use(utils.ErrorLogMiddleware)
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "PUT", "POST", "DELETE"},
		AllowHeaders:     []string{"Origin"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           30 * 24 * time.Hour,
	}))
	if !config.DEBUG_MODE {
		// Asset bytes are already compressed image data
		router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs([]string{`^/api/assets/[^/]+/[0-9]+$`})))
	}
	router.Use((&utils.CacheRouter{CacheTime: utils.CacheNoCache}).Handler()) // No cache by default, individual end-points can override that

	// Asset handlers
	router.POST("/api/assets", handlers.AssetUpload)
	router.GET("/api/assets", handlers.AssetList)
	router.GET("/api/assets/active/:type", handlers.AssetActive)
	router.GET("/api/assets/pack-set/:id", handlers.PackSetGet)
	router.PUT("/api/assets/:type/:id/activate", handlers.AssetActivate)
	router.DELETE("/api/assets/:type/:id", handlers.AssetDelete)
	router.GET("/api/assets/:type/:id", handlers.AssetFetch)
	// Bucket handlers
	router.GET("/api/buckets", handlers.BucketList)
	router.POST("/api/buckets", handlers.BucketSave)

	var err error
	if config.TLS_DOMAINS != "" {
		err = autotls.Run(router, strings.Split(config.TLS_DOMAINS, ",")...)
	} else {
		err = router.Run(config.BIND_ADDRESS)
	}
	log.Fatalf("Server stopped: %v", err)
}
