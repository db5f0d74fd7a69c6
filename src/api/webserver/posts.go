package webserver

import (
	"html"
	"net/http"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"

	"github.com/open-townhall/townhall/src/api/engine"
	"github.com/open-townhall/townhall/src/api/types"
)

type Posts struct {
	db        *gorm.DB
	eng       *engine.Engine
	sanitizer *bluemonday.Policy
}

func NewPosts(db *gorm.DB, eng *engine.Engine) Posts {
	// Strict sanitizer for citizen-authored markdown
	sanitizer := bluemonday.StrictPolicy()
	sanitizer.AllowElements("p", "br", "strong", "em", "code", "pre", "blockquote")
	sanitizer.AllowElements("ul", "ol", "li")
	sanitizer.AllowAttrs("href").OnElements("a")
	sanitizer.RequireParseableURLs(true)
	sanitizer.RequireNoFollowOnLinks(true)

	return Posts{db: db, eng: eng, sanitizer: sanitizer}
}

func (h Posts) Create(c *gin.Context) {
	var req struct {
		CommunityID string `json:"communityId" binding:"required,uuid"`
		Title       string `json:"title" binding:"required,min=1,max=255"`
		Body        string `json:"body" binding:"max=10000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	title := html.EscapeString(req.Title)
	body := h.sanitizer.Sanitize(req.Body)
	if !utf8.ValidString(title) || !utf8.ValidString(body) {
		c.JSON(http.StatusBadRequest, gin.H{"err": "invalid characters in input"})
		return
	}

	post, err := h.eng.CreatePost(c, req.CommunityID, c.GetString("uid"), title, body)
	if err != nil {
		reject(c, err)
		return
	}
	actionsSpent.Inc()
	c.JSON(http.StatusCreated, post)
}

func (h Posts) Comment(c *gin.Context) {
	var req struct {
		Body string `json:"body" binding:"required,min=1,max=10000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	body := h.sanitizer.Sanitize(req.Body)
	if body == "" {
		c.JSON(http.StatusBadRequest, gin.H{"err": "comment is empty after sanitization"})
		return
	}

	comment, err := h.eng.CreateComment(c, c.Param("id"), c.GetString("uid"), body)
	if err != nil {
		reject(c, err)
		return
	}
	actionsSpent.Inc()
	c.JSON(http.StatusCreated, comment)
}

// Upvote spends one action; one upvote per citizen per post.
func (h Posts) Upvote(c *gin.Context) {
	if err := h.eng.UpvotePost(c, c.Param("id"), c.GetString("uid")); err != nil {
		reject(c, err)
		return
	}
	actionsSpent.Inc()
	c.Status(http.StatusCreated)
}

// Delete is a moderator action; it does not spend budget.
func (h Posts) Delete(c *gin.Context) {
	var req struct {
		Reason string `json:"reason" binding:"max=255"`
	}
	// Body is optional for deletes.
	_ = c.ShouldBindJSON(&req)

	err := h.eng.DeletePost(c, c.Param("id"), c.GetString("uid"), html.EscapeString(req.Reason))
	if err != nil {
		reject(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h Posts) List(c *gin.Context) {
	var posts []types.Post
	err := h.db.Where("community_id = ?", c.Param("id")).
		Order("created_at DESC").Limit(100).Find(&posts).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": "storage failure"})
		return
	}
	c.JSON(http.StatusOK, posts)
}
