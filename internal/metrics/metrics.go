// Package metrics defines the Prometheus metrics of the user management API.
// All metrics register with the default registry on package init.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "usermanagement"

// UserOperationsTotal counts user service calls.
// Labels:
//   - operation: create, get, list, update, patch, delete
//   - outcome: ok, not_found, already_exists, access_denied, invalid, error
var UserOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "user_operations_total",
		Help:      "Total number of user operations, by operation and outcome.",
	},
	[]string{"operation", "outcome"},
)

// RolesCreatedTotal counts role records created on first use.
// Label:
//   - role: the role name (e.g. "ROLE_USER")
var RolesCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "roles_created_total",
		Help:      "Total number of role records created lazily.",
	},
	[]string{"role"},
)

// AuthenticationsTotal counts basic-auth attempts.
// Label:
//   - result: "success" or "failure"
var AuthenticationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authentications_total",
		Help:      "Total number of basic authentication attempts, by result.",
	},
	[]string{"result"},
)
