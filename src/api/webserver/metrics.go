package webserver

import "github.com/prometheus/client_golang/prometheus"

var (
	actionsSpent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "townhall_actions_spent_total",
		Help: "Daily budget units consumed across all citizens.",
	})
	budgetRejections = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "townhall_budget_rejections_total",
		Help: "Writes rejected because the daily budget was exhausted.",
	})
	votesCast = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "townhall_votes_cast_total",
		Help: "Votes recorded, by ballot kind.",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(actionsSpent, budgetRejections, votesCast)
}
