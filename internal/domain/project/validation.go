package project

import "strings"

// ValidateCreateInput validates fields required to fund a project.
func ValidateCreateInput(req CreateRequest) error {
	if strings.TrimSpace(req.Description) == "" {
		return ErrInvalidInput
	}
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// CheckAccept validates an accept by caller. Self-dealing is rejected
// whatever the project's status.
func CheckAccept(p Project, caller string) error {
	if caller == p.Client {
		return ErrSelfDealing
	}
	if p.Status != StatusCreated || p.Freelancer != "" {
		return ErrInvalidState
	}
	return nil
}

// CheckSubmit validates a work submission by caller. The hash is only
// inspected once status and role allow a submission.
func CheckSubmit(p Project, caller, deliverableHash string) error {
	if p.Status != StatusAccepted {
		return ErrInvalidState
	}
	if caller != p.Freelancer {
		return ErrUnauthorized
	}
	if strings.TrimSpace(deliverableHash) == "" {
		return ErrInvalidInput
	}
	return nil
}

// CheckApprove validates an approval by caller.
func CheckApprove(p Project, caller string) error {
	if p.Status != StatusWorkSubmitted {
		return ErrInvalidState
	}
	if caller != p.Client {
		return ErrUnauthorized
	}
	if p.Freelancer == "" || p.Amount == nil || p.Amount.Sign() <= 0 {
		return ErrInvalidState
	}
	return nil
}

// CheckDispute validates a dispute raised by caller.
func CheckDispute(p Project, caller string) error {
	if p.Status != StatusCreated && p.Status != StatusAccepted {
		return ErrInvalidState
	}
	if caller == p.Client {
		return nil
	}
	if p.Freelancer != "" && caller == p.Freelancer {
		return nil
	}
	return ErrUnauthorized
}
