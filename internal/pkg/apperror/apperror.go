package apperror

// AppError is an error that carries the HTTP status code it should be reported with.
// Packages declare their sentinel errors as *AppError values and compare them with errors.Is.
type AppError struct {
	Code    int
	Message string
}

// New creates a new AppError.
func New(code int, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func (e *AppError) Error() string {
	return e.Message
}
