package services

import "fmt"

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  string
}

// CanModify decides whether actor may modify or delete the record owned by
// owner. Owners may change their own record and admin may change any record.
// Empty owner or actor names are a contract violation, not a denial.
func CanModify(owner, actor, admin string) (Decision, error) {
	if owner == "" || actor == "" {
		return Decision{}, fmt.Errorf("%w: owner and acting user names are required", ErrPreconditionFailed)
	}
	switch actor {
	case owner:
		return Decision{Allowed: true, Reason: "owner"}, nil
	case admin:
		return Decision{Allowed: true, Reason: "administrator"}, nil
	}
	return Decision{
		Reason: fmt.Sprintf("only the owner %q or the administrator may modify this record, not %q", owner, actor),
	}, nil
}
