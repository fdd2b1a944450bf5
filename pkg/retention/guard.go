package retention

import "fmt"

// Decision is the outcome of the legal hold guard.
type Decision struct {
	Allowed bool
	Reason  string

	// HoldName identifies the blocking hold, if a hold is the reason.
	HoldName string
}

// CanExecute decides whether disposition may proceed for the policy.
// It is pure and total: any policy value yields a decision.
func CanExecute(p *Policy) Decision {
	if p == nil {
		return Decision{Reason: "policy is nil"}
	}
	if p.LegalHold.IsActive {
		return Decision{
			Reason:   fmt.Sprintf("policy is under legal hold %q", HoldLabel(p.LegalHold)),
			HoldName: HoldLabel(p.LegalHold),
		}
	}
	if p.Status != StatusActive {
		return Decision{Reason: fmt.Sprintf("policy status is %s", p.Status)}
	}
	return Decision{Allowed: true}
}

// HoldLabel returns the most descriptive identifier available for a hold.
func HoldLabel(h LegalHold) string {
	switch {
	case h.Name != "":
		return h.Name
	case h.CaseReference != "":
		return h.CaseReference
	default:
		return h.HoldID
	}
}
