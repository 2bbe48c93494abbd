package config

// ErrorCode defines error types for configuration loading
type ErrorCode string

const (
	ReadFailure   ErrorCode = "ReadFailure"
	InvalidConfig ErrorCode = "InvalidConfig"
)

func (c ErrorCode) ErrorCode() string {
	return string(c)
}
