package authz

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/nexcell-pos/nexcell-pos/internal/platform/httpx"
	"github.com/nexcell-pos/nexcell-pos/internal/shared"
)

// DenialCounter records denial outcomes for monitoring.
type DenialCounter interface {
	CountDenial(outcome string)
}

// Middleware wires the Evaluator into chi route groups. The requirement
// passed to Require is the route's static auth metadata; building the router
// builds the complete operation-to-requirement table.
type Middleware struct {
	Evaluator *Evaluator
	Logger    *slog.Logger
	Denials   DenialCounter
}

// Require guards the wrapped routes with the given requirement.
func (m Middleware) Require(req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := m.principal(r)
			if err := m.Evaluator.Evaluate(r.URL.Path, req, principal); err != nil {
				switch err {
				case ErrUnauthenticated:
					m.countDenial("unauthenticated")
					httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
				case ErrForbidden:
					m.countDenial("forbidden")
					httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient role")
				default:
					if m.Logger != nil {
						m.Logger.Error("authz evaluate", slog.Any("error", err))
					}
					httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PrincipalFromRequest resolves the principal the session middleware
// attached upstream, nil for anonymous requests.
func PrincipalFromRequest(r *http.Request) *Principal {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.Worker() == "" {
		return nil
	}
	id, err := strconv.ParseInt(sess.Worker(), 10, 64)
	if err != nil {
		return nil
	}
	role, err := ParseRole(sess.Role())
	if err != nil {
		return nil
	}
	return &Principal{WorkerID: id, Role: role}
}

func (m Middleware) principal(r *http.Request) *Principal {
	return PrincipalFromRequest(r)
}

func (m Middleware) countDenial(outcome string) {
	if m.Denials == nil {
		return
	}
	m.Denials.CountDenial(outcome)
}
