package router

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guardbot_events_processed",
	Help: "Number of inbound events handled, by kind",
}, []string{"kind"})

var pipelinePanics = promauto.NewCounter(prometheus.CounterOpts{
	Name: "guardbot_pipeline_panics",
	Help: "Number of recovered panics in event pipelines",
})

var pipelineDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "guardbot_pipeline_duration_sec",
	Help: "Duration of one event pipeline",
}, []string{"kind"})

var connectionCloses = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guardbot_connection_closes",
	Help: "Number of connection closes, by classification",
}, []string{"class"})
