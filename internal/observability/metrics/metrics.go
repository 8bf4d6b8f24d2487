// Package metrics provides Prometheus instrumentation for deployment runs.
// Runs are short-lived, so metrics live in a private registry that is pushed
// to a Pushgateway when the run ends.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	enabled bool
	jobName string

	registry *prometheus.Registry

	// Explorer API metrics
	explorerRequestsTotal *prometheus.CounterVec
	explorerDuration      *prometheus.HistogramVec

	// Deployment metrics
	deploymentTotal    *prometheus.CounterVec
	deploymentDuration *prometheus.HistogramVec
	deploymentGasUsed  *prometheus.GaugeVec

	// Verification metrics
	verificationTotal *prometheus.CounterVec

	// Run metrics
	runLastSuccess *prometheus.GaugeVec
)

// Init initializes the metrics system.
func Init(enabledFlag bool, job string) {
	enabled = enabledFlag
	jobName = job

	if !enabled {
		return
	}

	registry = prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(registry)

	// Explorer request counter
	explorerRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_requests_total",
			Help: "Total number of block explorer API requests",
		},
		[]string{"method", "action", "status"},
	)

	// Explorer request duration histogram
	explorerDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "explorer_request_duration_seconds",
			Help:    "Block explorer API latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "action"},
	)

	// Deployment counter
	deploymentTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contract_deployment_total",
			Help: "Total number of contract deployments by outcome",
		},
		[]string{"contract", "status"},
	)

	// Time from submission to settlement
	deploymentDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contract_deployment_duration_seconds",
			Help:    "Time from submitting a contract creation to its receipt",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
		},
		[]string{"contract"},
	)

	// Gas used by the creation transaction
	deploymentGasUsed = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "contract_deployment_gas_used",
			Help: "Gas used by the contract creation transaction",
		},
		[]string{"contract"},
	)

	// Verification counter
	verificationTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contract_verification_total",
			Help: "Total number of source verification attempts by outcome",
		},
		[]string{"status"},
	)

	// Run outcome
	runLastSuccess = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "deployment_run_success",
			Help: "1 if the deployment run completed, 0 if it was aborted",
		},
		[]string{"chain_id"},
	)
}

// Enabled returns whether metrics are enabled.
func Enabled() bool {
	return enabled
}

// JobName returns the configured Pushgateway job name.
func JobName() string {
	return jobName
}

// Registry returns the registry metrics are collected in, or nil when disabled.
func Registry() *prometheus.Registry {
	return registry
}
