package authz

import (
	"path"
	"strings"
)

// Evaluator decides whether a caller may proceed. It is a pure predicate
// over (path, requirement, principal) and carries no mutable state, so a
// single instance is shared across all concurrent requests.
type Evaluator struct {
	publicPatterns []string
}

// NewEvaluator constructs an Evaluator. Patterns follow path.Match syntax
// and short-circuit every other check, e.g. "/healthz" or "/api/docs/*".
func NewEvaluator(publicPatterns ...string) *Evaluator {
	cleaned := make([]string, 0, len(publicPatterns))
	for _, p := range publicPatterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		cleaned = append(cleaned, p)
	}
	return &Evaluator{publicPatterns: cleaned}
}

// PathIsPublic reports whether the request path matches a configured public
// pattern.
func (e *Evaluator) PathIsPublic(requestPath string) bool {
	for _, pattern := range e.publicPatterns {
		if ok, err := path.Match(pattern, requestPath); err == nil && ok {
			return true
		}
		if strings.HasSuffix(pattern, "/*") && strings.HasPrefix(requestPath, strings.TrimSuffix(pattern, "*")) {
			return true
		}
	}
	return false
}

// Evaluate applies the access decision in strict precedence order:
//
//  1. public route or public path pattern: allow, nothing else is checked
//  2. no principal: ErrUnauthenticated
//  3. empty required set: allow any authenticated caller
//  4. caller rank >= rank of at least one required role: allow
//  5. otherwise: ErrForbidden
//
// A nil error means the request is allowed.
func (e *Evaluator) Evaluate(requestPath string, req Requirement, principal *Principal) error {
	if req.IsPublic() || e.PathIsPublic(requestPath) {
		return nil
	}
	if principal == nil || principal.WorkerID == 0 || !principal.Role.Valid() {
		return ErrUnauthenticated
	}
	required := req.Roles()
	if len(required) == 0 {
		return nil
	}
	callerRank := principal.Role.Rank()
	for _, r := range required {
		if callerRank >= r.Rank() {
			return nil
		}
	}
	return ErrForbidden
}
