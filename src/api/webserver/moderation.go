package webserver

import (
	"html"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/open-townhall/townhall/src/api/engine"
	"github.com/open-townhall/townhall/src/api/types"
)

type Moderation struct {
	db  *gorm.DB
	eng *engine.Engine
}

func NewModeration(db *gorm.DB, eng *engine.Engine) Moderation {
	return Moderation{db: db, eng: eng}
}

func (h Moderation) Ban(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required,alphanum,min=3,max=32"`
		Reason   string `json:"reason" binding:"required,min=1,max=255"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	err := h.eng.BanUser(c, req.Username, c.Param("id"), c.GetString("uid"), html.EscapeString(req.Reason))
	if err != nil {
		reject(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

// Log returns the community's moderation audit trail, newest first.
func (h Moderation) Log(c *gin.Context) {
	var entries []types.ModLog
	err := h.db.Where("community_id = ?", c.Param("id")).
		Order("created_at DESC").Limit(50).Find(&entries).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": "storage failure"})
		return
	}
	c.JSON(http.StatusOK, entries)
}
