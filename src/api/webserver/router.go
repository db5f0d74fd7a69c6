package webserver

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/open-townhall/townhall/src/api/config"
	"github.com/open-townhall/townhall/src/api/engine"
)

func attachRoutes(r *gin.Engine, cfg config.Config, db *gorm.DB, rdb *redis.Client, eng *engine.Engine) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authH := NewAuth(db, rdb, []byte(cfg.JWTSecret))
	budgetH := NewBudget(eng)
	commH := NewCommunities(db, eng)
	postH := NewPosts(db, eng)
	electH := NewElections(db, eng)
	propH := NewProposals(db, eng)
	modH := NewModeration(db, eng)
	userH := NewUsers(db)

	throttle := Throttle(rdb, cfg.ThrottleLimit, time.Duration(cfg.ThrottleWindow)*time.Second)

	v1 := r.Group("/v1")
	v1.Use(throttle)
	{
		v1.POST("/auth/register", authH.Register)
		v1.POST("/auth/login", authH.Login)

		v1.GET("/communities/:id/posts", postH.List)
		v1.GET("/communities/:id/elections", electH.List)
		v1.GET("/communities/:id/modlog", modH.Log)
		v1.GET("/elections/:id", electH.Get)
		v1.GET("/constitution", propH.Constitution)
		v1.GET("/users/:username", userH.Profile)

		secured := v1.Group("")
		// Second throttle pass behind auth so the counter keys on the
		// citizen, not the shared IP.
		secured.Use(JWTMiddleware([]byte(cfg.JWTSecret), rdb), throttle)
		{
			secured.POST("/auth/logout", authH.Logout)
			secured.GET("/budget", budgetH.Remaining)

			secured.POST("/communities", commH.Create)
			secured.POST("/posts", postH.Create)
			secured.POST("/posts/:id/comments", postH.Comment)
			secured.POST("/posts/:id/upvotes", postH.Upvote)
			secured.DELETE("/posts/:id", postH.Delete)

			secured.POST("/communities/:id/bans", modH.Ban)

			secured.POST("/communities/:id/elections", electH.Start)
			secured.POST("/elections/:id/candidates", electH.Candidacy)
			secured.POST("/elections/:id/votes", electH.Vote)

			secured.POST("/proposals", propH.Create)
			secured.POST("/proposals/:id/votes", propH.Vote)
		}
	}
}
