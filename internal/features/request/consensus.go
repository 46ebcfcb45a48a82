package request

import (
	"github.com/NCGHoldings/StoresONE-sub000/internal/features/workflow"
)

// Verdict is the aggregated outcome of a step's recorded actions.
type Verdict string

const (
	VerdictPending   Verdict = "pending"
	VerdictSatisfied Verdict = "satisfied"
	VerdictRejected  Verdict = "rejected"
)

// Aggregate recomputes the step verdict from the full per-step action log.
// It keeps only the latest action per distinct eligible approver (plus
// synthesized system actions), so replaying the same log always yields the
// same verdict; there are no hidden counters.
//
// Rejection is not symmetric with approval: one reject from any eligible
// approver vetoes the step regardless of the consensus policy, including
// percentage steps.
func Aggregate(step *workflow.Step, eligible []string, actions []Action) Verdict {
	eligibleSet := make(map[string]bool, len(eligible))
	for _, id := range eligible {
		eligibleSet[id] = true
	}

	latest := make(map[string]Decision, len(eligible))
	for _, a := range actions {
		if a.ActorID == SystemActorID {
			// Synthesized escalation outcomes are terminal for the step.
			switch a.Decision {
			case DecisionAutoApprove:
				return VerdictSatisfied
			case DecisionAutoReject:
				return VerdictRejected
			}
			continue
		}
		if !eligibleSet[a.ActorID] {
			continue
		}
		switch a.Decision {
		case DecisionApprove, DecisionReject:
			latest[a.ActorID] = a.Decision
		}
	}

	approved := 0
	for _, decision := range latest {
		switch decision {
		case DecisionReject:
			return VerdictRejected
		case DecisionApprove:
			approved++
		}
	}

	switch step.ApprovalType {
	case workflow.ApprovalTypeAny:
		if approved >= 1 {
			return VerdictSatisfied
		}
	case workflow.ApprovalTypeAll:
		if approved == len(eligible) && len(eligible) > 0 {
			return VerdictSatisfied
		}
	case workflow.ApprovalTypePercentage:
		if step.RequiredPercentage != nil && len(eligible) > 0 {
			if float64(approved)/float64(len(eligible))*100 >= float64(*step.RequiredPercentage) {
				return VerdictSatisfied
			}
		}
	}

	return VerdictPending
}
