package registry

// ErrorCode defines error types for registry operations
type ErrorCode string

const (
	DuplicateName ErrorCode = "DuplicateName"
	NotFound      ErrorCode = "NotFound"
	InvalidParams ErrorCode = "InvalidParams"
	InvalidSpec   ErrorCode = "InvalidSpec"
)

func (c ErrorCode) ErrorCode() string {
	return string(c)
}
