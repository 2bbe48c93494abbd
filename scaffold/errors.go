package scaffold

// ErrorCode defines error types for scaffolding operations
type ErrorCode string

const (
	InvalidManifest    ErrorCode = "InvalidManifest"
	UnknownProgramKind ErrorCode = "UnknownProgramKind"
	InvalidPackageName ErrorCode = "InvalidPackageName"
)

func (c ErrorCode) ErrorCode() string {
	return string(c)
}
