package webserver

import (
	"html"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/open-townhall/townhall/src/api/engine"
)

type Communities struct {
	db  *gorm.DB
	eng *engine.Engine
}

func NewCommunities(db *gorm.DB, eng *engine.Engine) Communities {
	return Communities{db: db, eng: eng}
}

func (h Communities) Create(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required,alphanum,min=3,max=64"`
		Description string `json:"description" binding:"max=512"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	community, err := h.eng.CreateCommunity(c, req.Name, html.EscapeString(req.Description), c.GetString("uid"))
	if err != nil {
		reject(c, err)
		return
	}
	actionsSpent.Inc()
	c.JSON(http.StatusCreated, community)
}
