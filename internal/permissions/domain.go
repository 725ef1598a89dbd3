package permissions

import "time"

// Tool identifiers gated by the permission system. ToolAll is a wildcard
// valid only inside permission definitions.
const (
	ToolTextQuestionAnalysis = "text-question-analysis"
	ToolQuestionGenerator    = "question-generator"
	ToolWritingEvaluator     = "writing-evaluator"
	ToolAll                  = "all"
)

// KnownTools returns the closed set of grantable tool names, wildcard excluded.
func KnownTools() []string {
	return []string{ToolTextQuestionAnalysis, ToolQuestionGenerator, ToolWritingEvaluator}
}

// ValidTool reports whether name is a grantable tool or the wildcard.
func ValidTool(name string) bool {
	switch name {
	case ToolTextQuestionAnalysis, ToolQuestionGenerator, ToolWritingEvaluator, ToolAll:
		return true
	}
	return false
}

// Definition is a permission catalog entry tied to a tool.
type Definition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Tool        string `json:"tool"`
}

// Grant records that a permission was granted to an account. Multiple grants
// for the same (account, permission) pair may coexist; one active,
// non-expired grant is enough to authorize.
type Grant struct {
	ID           string     `json:"id"`
	AccountID    string     `json:"accountId"`
	PermissionID string     `json:"permissionId"`
	GrantedBy    string     `json:"grantedBy"`
	GrantedAt    time.Time  `json:"grantedAt"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	IsActive     bool       `json:"isActive"`
}

// Expired reports whether the grant's expiry, if any, has passed.
func (g *Grant) Expired(now time.Time) bool {
	return g.ExpiresAt != nil && !g.ExpiresAt.After(now)
}
