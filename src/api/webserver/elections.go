package webserver

import (
	"html"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/open-townhall/townhall/src/api/engine"
	"github.com/open-townhall/townhall/src/api/types"
)

type Elections struct {
	db  *gorm.DB
	eng *engine.Engine
}

func NewElections(db *gorm.DB, eng *engine.Engine) Elections {
	return Elections{db: db, eng: eng}
}

func (h Elections) Start(c *gin.Context) {
	election, err := h.eng.StartElection(c, c.Param("id"), c.GetString("uid"))
	if err != nil {
		reject(c, err)
		return
	}
	actionsSpent.Inc()
	c.JSON(http.StatusCreated, election)
}

func (h Elections) Candidacy(c *gin.Context) {
	var req struct {
		Manifesto string `json:"manifesto" binding:"required,min=1,max=5000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	candidate, err := h.eng.DeclareCandidacy(c, c.Param("id"), c.GetString("uid"), html.EscapeString(req.Manifesto))
	if err != nil {
		reject(c, err)
		return
	}
	actionsSpent.Inc()
	c.JSON(http.StatusCreated, candidate)
}

func (h Elections) Vote(c *gin.Context) {
	var req struct {
		CandidateID string `json:"candidateId" binding:"required,uuid"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	if err := h.eng.CastVote(c, c.Param("id"), req.CandidateID, c.GetString("uid")); err != nil {
		reject(c, err)
		return
	}
	actionsSpent.Inc()
	votesCast.WithLabelValues("election").Inc()
	c.Status(http.StatusCreated)
}

// Get returns an election with its candidates and live tallies.
func (h Elections) Get(c *gin.Context) {
	var election types.Election
	if err := h.db.First(&election, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"err": "election not found"})
		return
	}

	var candidates []types.Candidate
	err := h.db.Where("election_id = ?", election.ID).
		Order("vote_count DESC, created_at ASC").Find(&candidates).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": "storage failure"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"election": election, "candidates": candidates})
}

func (h Elections) List(c *gin.Context) {
	var elections []types.Election
	err := h.db.Where("community_id = ?", c.Param("id")).
		Order("created_at DESC").Find(&elections).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": "storage failure"})
		return
	}
	c.JSON(http.StatusOK, elections)
}
