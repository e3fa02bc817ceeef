package reset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dhos/janitor/internal/client"
	"github.com/dhos/janitor/internal/model"
)

// ValidationError rejects a reset request before any service is touched.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Classification marks the error for task status reporting.
func (e *ValidationError) Classification() string { return "validation" }

// NormalizeTarget accepts either service_name or service-name spelling.
func NormalizeTarget(t string) string {
	return strings.ReplaceAll(strings.TrimSpace(t), "_", "-")
}

// ResolveTargets returns the requested targets in reset order. An empty
// request selects every target, leaving out the EPR integration unless the
// customer has it enabled.
func ResolveTargets(requested []string, cfg model.TrustomerConfig) ([]string, error) {
	known := make(map[string]bool, len(client.ResettableTargets))
	for _, t := range client.ResettableTargets {
		known[t] = true
	}
	epr := cfg.GDMConfig.UseEPRIntegration

	want := make(map[string]bool, len(requested))
	var unknown []string
	for _, t := range requested {
		t = NormalizeTarget(t)
		if t == "" {
			continue
		}
		if !known[t] {
			unknown = append(unknown, t)
			continue
		}
		want[t] = true
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &ValidationError{Message: fmt.Sprintf("unknown microservices '%s'", strings.Join(unknown, ","))}
	}

	if len(want) == 0 {
		for t := range known {
			want[t] = true
		}
		if !epr {
			delete(want, client.FuegoAPI)
		}
	} else if want[client.FuegoAPI] && !epr {
		return nil, &ValidationError{Message: "EPR integration is disabled, can't reset " + client.FuegoAPI}
	}

	out := make([]string, 0, len(want))
	for _, t := range client.ResettableTargets {
		if want[t] {
			out = append(out, t)
		}
	}
	return out, nil
}
