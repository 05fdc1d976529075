package apperrors

import "fmt"

// NotFoundError is returned when a referenced entity does not exist in the tenant scope.
type NotFoundError struct {
	ResourceType string
	ID           string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.ResourceType, e.ID)
}

// AlreadyExistsError is returned when a create operation violates a uniqueness constraint.
type AlreadyExistsError struct {
	ResourceType string
	Constraint   string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s already exists (%s)", e.ResourceType, e.Constraint)
}

// InvalidSecretError is returned when a submitted secret does not match the stored hash.
// The message intentionally does not reveal which check failed.
type InvalidSecretError struct{}

func (e *InvalidSecretError) Error() string {
	return "invalid credentials"
}

// InvalidResetTokenError is returned when there is no pending reset token or the
// submitted token does not match.
type InvalidResetTokenError struct{}

func (e *InvalidResetTokenError) Error() string {
	return "invalid reset token"
}

// ResetTokenExpiredError is returned when the pending reset token is past its expiry,
// even if the submitted token would otherwise match.
type ResetTokenExpiredError struct{}

func (e *ResetTokenExpiredError) Error() string {
	return "reset token expired"
}

// PreconditionFailedError is returned when an operation's domain precondition does not
// hold, e.g. enabling MFA without any registered TOTP device.
type PreconditionFailedError struct {
	Reason string
}

func (e *PreconditionFailedError) Error() string {
	return "precondition failed: " + e.Reason
}

// StillReferencedError is returned when a delete is blocked by a dependent resource.
type StillReferencedError struct {
	ResourceType    string
	ID              string
	ReferencingType string
}

func (e *StillReferencedError) Error() string {
	return fmt.Sprintf("%s %s is still referenced by %s", e.ResourceType, e.ID, e.ReferencingType)
}

// UnauthorizedError is returned for any session or token failure. It is deliberately
// indistinguishable from "not found" for the external caller.
type UnauthorizedError struct{}

func (e *UnauthorizedError) Error() string {
	return "unauthorized"
}

// MalformedTokenError is returned when a bearer token does not match the fixed-width
// encoding contract.
type MalformedTokenError struct {
	Reason string
}

func (e *MalformedTokenError) Error() string {
	return "malformed token: " + e.Reason
}

// UnsupportedOperationError is returned when a feature is disabled by configuration,
// e.g. access token signing without a configured key.
type UnsupportedOperationError struct {
	Feature string
}

func (e *UnsupportedOperationError) Error() string {
	return "operation not supported: " + e.Feature
}
