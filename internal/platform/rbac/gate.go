package rbac

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/open-policy-agent/opa/v1/storage/inmem"
	"github.com/rs/zerolog"

	"mentorhub/backend/internal/platform/httpx"
	"mentorhub/backend/internal/server/interceptors"
)

// ErrForbidden is returned when the caller's roles do not satisfy the operation's rule.
var ErrForbidden = errors.New("forbidden")

const policyQuery = "data.mentorhub.rbac.allow"

// policy grants an operation when its role set is empty or shares a role with the caller.
// Unknown operations fall through to the default.
const policy = `package mentorhub.rbac

default allow := false

allow if {
	required := data.rbac.rules[input.operation]
	count(required) == 0
}

allow if {
	some role in input.roles
	role in data.rbac.rules[input.operation]
}
`

// Gate evaluates operation rules with OPA.
type Gate struct {
	rules Rules
	query rego.PreparedEvalQuery
}

// NewGate compiles the role policy and prepares it against rules.
func NewGate(ctx context.Context, rules Rules) (*Gate, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	compiler, err := ast.CompileModules(map[string]string{"rbac.rego": policy})
	if err != nil {
		return nil, fmt.Errorf("compile rbac policy: %w", err)
	}
	query, err := rego.New(
		rego.Query(policyQuery),
		rego.Compiler(compiler),
		rego.Store(inmem.NewFromObject(rules.data())),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare rbac policy: %w", err)
	}
	return &Gate{rules: rules, query: query}, nil
}

// Authorize returns nil when roles satisfy the rule for operation and ErrForbidden otherwise.
// Evaluation errors are returned as-is; callers must treat them as a denial.
func (g *Gate) Authorize(ctx context.Context, operation string, roles []string) error {
	claims := make([]any, 0, len(roles))
	for _, r := range roles {
		claims = append(claims, r)
	}
	rs, err := g.query.Eval(ctx, rego.EvalInput(map[string]any{
		"operation": operation,
		"roles":     claims,
	}))
	if err != nil {
		return fmt.Errorf("eval rbac policy: %w", err)
	}
	if !rs.Allowed() {
		return ErrForbidden
	}
	return nil
}

// Known reports whether operation has a rule.
func (g *Gate) Known(operation string) bool {
	_, ok := g.rules[operation]
	return ok
}

// HealthCheck evaluates the prepared policy once. Returns nil when OPA answers.
func (g *Gate) HealthCheck(ctx context.Context) error {
	rs, err := g.query.Eval(ctx, rego.EvalInput(map[string]any{"operation": "", "roles": []any{}}))
	if err != nil {
		return fmt.Errorf("eval rbac policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return errors.New("rbac policy query returned no result")
	}
	return nil
}

// Require returns middleware that admits only callers whose role claims satisfy operation.
// It must run after the authentication middleware.
func (g *Gate) Require(operation string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			roles, ok := interceptors.GetRoles(r.Context())
			if !ok {
				httpx.WriteError(w, http.StatusUnauthorized, httpx.CodeUnauthenticated, "authentication required")
				return
			}
			err := g.Authorize(r.Context(), operation, roles)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, ErrForbidden):
				httpx.WriteError(w, http.StatusForbidden, httpx.CodeForbidden, "insufficient role for "+operation)
			default:
				zerolog.Ctx(r.Context()).Error().Err(err).Str("operation", operation).Msg("role gate evaluation failed")
				httpx.WriteError(w, http.StatusServiceUnavailable, httpx.CodeServiceFailure, "authorization unavailable")
			}
		})
	}
}
