package commands

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var dispatchCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guardbot_commands_dispatched",
	Help: "Number of commands handed to their handler",
}, []string{"command"})

var rejectionCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guardbot_command_rejections",
	Help: "Number of commands stopped by a guard",
}, []string{"guard"})

var errorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guardbot_command_errors",
	Help: "Number of command handlers that failed or panicked",
}, []string{"command"})
