package metrics

import "time"

// Deployment records a deployment outcome.
func Deployment(contract, status string) {
	if !enabled {
		return
	}
	deploymentTotal.WithLabelValues(contract, status).Inc()
}

// DeploymentDuration records the time a contract creation took to settle.
func DeploymentDuration(contract string, d time.Duration) {
	if !enabled {
		return
	}
	deploymentDuration.WithLabelValues(contract).Observe(d.Seconds())
}

// GasUsed records the gas spent on a contract creation.
func GasUsed(contract string, gas uint64) {
	if !enabled {
		return
	}
	deploymentGasUsed.WithLabelValues(contract).Set(float64(gas))
}

// Verification records a settled verification status.
func Verification(status string) {
	if !enabled {
		return
	}
	verificationTotal.WithLabelValues(status).Inc()
}

// RunFinished records whether a run completed.
func RunFinished(chainID string, ok bool) {
	if !enabled {
		return
	}
	v := 0.0
	if ok {
		v = 1
	}
	runLastSuccess.WithLabelValues(chainID).Set(v)
}
