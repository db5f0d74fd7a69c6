package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/open-townhall/townhall/src/api/engine"
)

type Budget struct {
	eng *engine.Engine
}

func NewBudget(eng *engine.Engine) Budget { return Budget{eng: eng} }

// Remaining reports how much of today's budget the caller has left.
func (b Budget) Remaining(c *gin.Context) {
	left, err := b.eng.Ledger.Remaining(c, c.GetString("uid"))
	if err != nil {
		reject(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"remaining": left,
		"limit":     b.eng.Config.GetInt(engine.KeyDailyEnergyLimit),
	})
}
