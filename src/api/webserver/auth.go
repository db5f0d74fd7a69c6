package webserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/open-townhall/townhall/src/api/data"
	"github.com/open-townhall/townhall/src/api/types"
)

const tokenLifetime = 24 * time.Hour

type Auth struct {
	db        *gorm.DB
	rdb       *redis.Client
	jwtSecret []byte
}

func NewAuth(db *gorm.DB, rdb *redis.Client, secret []byte) Auth {
	return Auth{db: db, rdb: rdb, jwtSecret: secret}
}

func (a Auth) Register(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required,alphanum,min=3,max=32"`
		Password string `json:"password" binding:"required,min=8,max=72"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": "failed to hash password"})
		return
	}

	citizen := types.Citizen{
		ID:           uuid.NewString(),
		Username:     req.Username,
		PasswordHash: string(hash),
	}
	if err := a.db.Create(&citizen).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"err": "username already taken"})
			return
		}
		log.Error().Err(err).Msg("citizen create")
		c.JSON(http.StatusInternalServerError, gin.H{"err": "storage failure"})
		return
	}

	token, err := issueJWT(citizen.ID, a.jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token, "id": citizen.ID})
}

func (a Auth) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	var citizen types.Citizen
	if err := a.db.First(&citizen, "username = ?", req.Username).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"err": "bad credentials"})
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(citizen.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"err": "bad credentials"})
		return
	}

	token, err := issueJWT(citizen.ID, a.jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "id": citizen.ID})
}

// Logout denylists the current token until its natural expiry.
func (a Auth) Logout(c *gin.Context) {
	jti := c.GetString("jti")
	ttl := tokenLifetime
	if exp, ok := c.Get("exp"); ok {
		if until := time.Until(time.Unix(exp.(int64), 0)); until > 0 {
			ttl = until
		}
	}
	if err := data.RevokeToken(c, a.rdb, jti, ttl); err != nil {
		log.Warn().Err(err).Msg("token revoke")
		c.JSON(http.StatusInternalServerError, gin.H{"err": "failed to revoke token"})
		return
	}
	c.Status(http.StatusNoContent)
}

func issueJWT(userID string, secret []byte) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(tokenLifetime).Unix(),
	})
	return tok.SignedString(secret)
}
