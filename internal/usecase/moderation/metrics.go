package moderation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var actionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guardbot_moderation_actions",
	Help: "Number of moderation enforcements, by policy and action",
}, []string{"policy", "action"})

var panicCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "guardbot_moderation_panics",
	Help: "Number of recovered panics during moderation",
})
