package webserver

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/open-townhall/townhall/src/api/config"
	"github.com/open-townhall/townhall/src/api/engine"
)

func New(cfg config.Config, db *gorm.DB, rdb *redis.Client, eng *engine.Engine) *gin.Engine {
	g := gin.New()
	g.Use(gin.Logger(), gin.Recovery())
	attachRoutes(g, cfg, db, rdb, eng)
	return g
}
