package cli

// ErrorCode defines error types for CLI operations
type ErrorCode string

const (
	InvalidArguments    ErrorCode = "InvalidArguments"
	InvalidOutputFormat ErrorCode = "InvalidOutputFormat"
	ChapterNotFound     ErrorCode = "ChapterNotFound"
	NoChapterURL        ErrorCode = "NoChapterURL"
	RenderFailure       ErrorCode = "RenderFailure"
)

func (c ErrorCode) ErrorCode() string {
	return string(c)
}
