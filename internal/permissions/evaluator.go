package permissions

import (
	"context"
	"slices"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/examforge/examforge/internal/shared"
)

// Evaluator decides tool access. Admins always pass; regular users need an
// active, non-expired grant whose definition covers the requested tool or the
// wildcard. Decisions are recomputed from grant and definition records, never
// from the denormalized account permission list.
type Evaluator struct {
	repo RepositoryPort
	sf   singleflight.Group
}

// NewEvaluator constructs an Evaluator.
func NewEvaluator(repo RepositoryPort) *Evaluator {
	return &Evaluator{repo: repo}
}

// HasPermission reports whether the account may use the named tool.
func (e *Evaluator) HasPermission(ctx context.Context, accountID, role, tool string) (bool, error) {
	if accountID == "" {
		return false, nil
	}
	if role == shared.RoleAdmin {
		return true, nil
	}
	tools, err := e.EffectiveTools(ctx, accountID)
	if err != nil {
		return false, err
	}
	return slices.Contains(tools, tool), nil
}

// EffectiveTools recomputes the set of tools the account's active grants
// cover. A wildcard definition expands to every known tool. Concurrent
// recomputes for the same account are coalesced.
func (e *Evaluator) EffectiveTools(ctx context.Context, accountID string) ([]string, error) {
	v, err, _ := e.sf.Do(accountID, func() (any, error) {
		granted, err := e.repo.ActiveGrantTools(ctx, accountID, time.Now().UTC())
		if err != nil {
			return nil, err
		}
		tools := make([]string, 0, len(KnownTools()))
		for _, tool := range KnownTools() {
			if slices.Contains(granted, tool) || slices.Contains(granted, ToolAll) {
				tools = append(tools, tool)
			}
		}
		return tools, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// ToolsForAccount returns the tool list to cache in a session: every known
// tool for admins, the recomputed effective set otherwise.
func (e *Evaluator) ToolsForAccount(ctx context.Context, accountID, role string) ([]string, error) {
	if role == shared.RoleAdmin {
		return KnownTools(), nil
	}
	return e.EffectiveTools(ctx, accountID)
}
