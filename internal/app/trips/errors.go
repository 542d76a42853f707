package trips

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

// Existence of trips the caller cannot see is not disclosed, so every not-found error
// for trip-scoped resources also covers "not a participant".
func errTripNotFound() *Error {
	return &Error{Status: 404, Code: "TRIP_NOT_FOUND", Message: "trip not found"}
}

func errWhiteboardNotFound() *Error {
	return &Error{Status: 404, Code: "WHITEBOARD_NOT_FOUND", Message: "whiteboard not found"}
}

func errPinNotFound() *Error {
	return &Error{Status: 404, Code: "PIN_NOT_FOUND", Message: "pin not found"}
}

func errImageNotFound() *Error {
	return &Error{Status: 404, Code: "IMAGE_NOT_FOUND", Message: "no image uploaded"}
}

func errForbidden(message string) *Error {
	return &Error{Status: 403, Code: "FORBIDDEN", Message: message}
}

func validationError(field, message, detail string) *Error {
	return &Error{
		Status:  422,
		Code:    "VALIDATION_ERROR",
		Message: message,
		Details: map[string]any{field: detail},
	}
}
