package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/open-townhall/townhall/src/api/types"
)

type Users struct {
	db *gorm.DB
}

func NewUsers(db *gorm.DB) Users { return Users{db: db} }

// Profile returns a citizen's public record: karma is the sum of upvotes
// across everything they posted.
func (h Users) Profile(c *gin.Context) {
	var citizen types.Citizen
	if err := h.db.First(&citizen, "username = ?", c.Param("username")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"err": "no such citizen"})
		return
	}

	var karma int64
	err := h.db.Model(&types.Post{}).
		Where("author_id = ?", citizen.ID).
		Select("COALESCE(SUM(upvotes), 0)").
		Scan(&karma).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": "storage failure"})
		return
	}

	var posts int64
	err = h.db.Model(&types.Post{}).
		Where("author_id = ?", citizen.ID).
		Count(&posts).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": "storage failure"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"username": citizen.Username,
		"karma":    karma,
		"posts":    posts,
		"joined":   citizen.CreatedAt,
	})
}
