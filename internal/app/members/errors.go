package members

// Error is an application-layer error that can be mapped to an HTTP response.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

func errNotProvisioned() *Error {
	return &Error{
		Status:  404,
		Code:    "MEMBER_NOT_PROVISIONED",
		Message: "No member profile exists for the authenticated subject.",
	}
}

func errAlreadyExists() *Error {
	return &Error{
		Status:  409,
		Code:    "MEMBER_ALREADY_EXISTS",
		Message: "A member profile already exists for the authenticated subject.",
	}
}

func errEmailInUse() *Error {
	return &Error{
		Status:  409,
		Code:    "EMAIL_ALREADY_IN_USE",
		Message: "email address is already in use",
	}
}

func validationError(field, message, detail string) *Error {
	return &Error{
		Status:  422,
		Code:    "VALIDATION_ERROR",
		Message: message,
		Details: map[string]any{field: detail},
	}
}
