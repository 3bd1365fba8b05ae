package handle_message

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var stagePanics = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guardbot_pipeline_stage_panics",
	Help: "Number of recovered panics per message pipeline stage",
}, []string{"stage"})
