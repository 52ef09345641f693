package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Result labels shared by the identity counters.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// IdentityMetricsOptions controls construction of identity collectors.
type IdentityMetricsOptions struct {
	Registerer prometheus.Registerer
	Namespace  string
}

// IdentityMetrics counts identity operations by outcome.
type IdentityMetrics struct {
	registrations *prometheus.CounterVec
	logins        *prometheus.CounterVec
	verifications *prometheus.CounterVec
}

// NewIdentityMetrics registers the identity counters, reusing collectors already present on reg.
func NewIdentityMetrics(opts IdentityMetricsOptions) (*IdentityMetrics, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "iam"
	}

	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	registrations, err := registerCounterVec(reg, prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "identity",
		Name:      "registrations_total",
		Help:      "Account registrations partitioned by result and reason.",
	})
	if err != nil {
		return nil, err
	}

	logins, err := registerCounterVec(reg, prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "identity",
		Name:      "logins_total",
		Help:      "Login attempts partitioned by result and reason.",
	})
	if err != nil {
		return nil, err
	}

	verifications, err := registerCounterVec(reg, prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "identity",
		Name:      "email_verifications_total",
		Help:      "Email verification attempts partitioned by result and reason.",
	})
	if err != nil {
		return nil, err
	}

	return &IdentityMetrics{
		registrations: registrations,
		logins:        logins,
		verifications: verifications,
	}, nil
}

func registerCounterVec(reg prometheus.Registerer, opts prometheus.CounterOpts) (*prometheus.CounterVec, error) {
	vec := prometheus.NewCounterVec(opts, []string{"result", "reason"})
	if err := reg.Register(vec); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				return nil, fmt.Errorf("existing %s collector has unexpected type %T", opts.Name, already.ExistingCollector)
			}
			return existing, nil
		}
		return nil, fmt.Errorf("register %s collector: %w", opts.Name, err)
	}
	return vec, nil
}

func (m *IdentityMetrics) IncRegistration(result, reason string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(result, reason).Inc()
}

func (m *IdentityMetrics) IncLogin(result, reason string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result, reason).Inc()
}

func (m *IdentityMetrics) IncVerification(result, reason string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(result, reason).Inc()
}
