package api

import (
	"github.com/xraph/granary"
	"github.com/xraph/granary/id"
)

// Decision codes reported by check routes.
const (
	DecisionAllow      = "allow"
	DecisionDeny       = "deny"
	DecisionNotGranted = "not_granted"
)

// CheckResponse is the response for a permission check.
type CheckResponse struct {
	Allowed    bool     `json:"allowed" description:"Whether the permission is in effect"`
	Decision   string   `json:"decision" description:"allow, deny or not_granted"`
	RoleIDs    []string `json:"role_ids,omitempty" description:"Roles granting or denying the permission"`
	EvalTimeNs int64    `json:"eval_time_ns" description:"Evaluation time in nanoseconds"`
}

// BatchCheckResponse contains results for multiple checks.
type BatchCheckResponse struct {
	Results []CheckResponse `json:"results" description:"Check results in order"`
}

// GroupsResponse lists the groups a principal belongs to.
type GroupsResponse struct {
	PrincipalID string   `json:"principal_id" description:"Principal identifier"`
	GroupIDs    []string `json:"group_ids" description:"Direct and inherited group IDs"`
}

func toCheckResponse(r *granary.CheckResult) *CheckResponse {
	resp := &CheckResponse{
		Allowed:    r.Allowed,
		Decision:   DecisionNotGranted,
		RoleIDs:    idStrings(r.RoleIDs),
		EvalTimeNs: r.EvalTimeNs,
	}
	switch {
	case r.Allowed:
		resp.Decision = DecisionAllow
	case r.Denied:
		resp.Decision = DecisionDeny
	}
	return resp
}

func idStrings(ids []id.ID) []string {
	out := make([]string, len(ids))
	for i, x := range ids {
		out[i] = x.String()
	}
	return out
}
