package search

// ErrorCode defines error types for index construction
type ErrorCode string

const (
	DuplicateDocument ErrorCode = "DuplicateDocument"
	UnknownField      ErrorCode = "UnknownField"
	InvalidParams     ErrorCode = "InvalidParams"
)

func (c ErrorCode) ErrorCode() string {
	return string(c)
}
