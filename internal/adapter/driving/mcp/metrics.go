package mcpadapter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var toolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "wpgateway_mcp_tool_calls_total",
	Help: "MCP tool calls by tool and outcome",
}, []string{"tool", "outcome"})
