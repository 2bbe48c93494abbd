package corpus

// ErrorCode defines error types for corpus loading
type ErrorCode string

const (
	EmptyCorpus       ErrorCode = "EmptyCorpus"
	DuplicateDocument ErrorCode = "DuplicateDocument"
	InvalidDocument   ErrorCode = "InvalidDocument"
	ReadFailure       ErrorCode = "ReadFailure"
)

func (c ErrorCode) ErrorCode() string {
	return string(c)
}
