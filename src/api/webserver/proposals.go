package webserver

import (
	"html"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/open-townhall/townhall/src/api/engine"
	"github.com/open-townhall/townhall/src/api/types"
)

type Proposals struct {
	db  *gorm.DB
	eng *engine.Engine
}

func NewProposals(db *gorm.DB, eng *engine.Engine) Proposals {
	return Proposals{db: db, eng: eng}
}

func (h Proposals) Create(c *gin.Context) {
	var req struct {
		Title       string `json:"title" binding:"required,min=1,max=255"`
		Description string `json:"description" binding:"max=5000"`
		Key         string `json:"key" binding:"required,oneof=daily_energy_limit election_term_days"`
		Value       string `json:"value" binding:"required,max=256"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	proposal, err := h.eng.CreateProposal(c,
		html.EscapeString(req.Title), html.EscapeString(req.Description),
		req.Key, req.Value, c.GetString("uid"))
	if err != nil {
		reject(c, err)
		return
	}
	actionsSpent.Inc()
	c.JSON(http.StatusCreated, proposal)
}

func (h Proposals) Vote(c *gin.Context) {
	var req struct {
		Choice string `json:"choice" binding:"required,oneof=yes no"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	if err := h.eng.VoteOnProposal(c, c.Param("id"), req.Choice, c.GetString("uid")); err != nil {
		reject(c, err)
		return
	}
	actionsSpent.Inc()
	votesCast.WithLabelValues("proposal").Inc()
	c.Status(http.StatusCreated)
}

// Constitution returns the current law of the land: the live config values
// and every proposal still open for voting.
func (h Proposals) Constitution(c *gin.Context) {
	var proposals []types.Proposal
	err := h.db.Where("status = ?", types.ProposalActive).
		Order("created_at DESC").Find(&proposals).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": "storage failure"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"config": gin.H{
			engine.KeyDailyEnergyLimit: h.eng.Config.Get(engine.KeyDailyEnergyLimit),
			engine.KeyElectionTermDays: h.eng.Config.Get(engine.KeyElectionTermDays),
		},
		"proposals": proposals,
	})
}
