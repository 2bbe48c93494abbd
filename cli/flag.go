package cli

import (
	"strings"

	"github.com/morikuni/failure/v2"
	"github.com/spf13/pflag"
)

type outputFormat string

const (
	formatText outputFormat = "text"
	formatJSON outputFormat = "json"
)

type outputFormatFlag struct {
	IsSet bool
	Value outputFormat
}

// String implements pflag.Value.
func (f *outputFormatFlag) String() string {
	if f.Value == "" {
		return string(formatText)
	}
	return string(f.Value)
}

func (f *outputFormatFlag) Set(value string) error {
	switch v := outputFormat(strings.ToLower(value)); v {
	case formatText, formatJSON:
		f.Value = v
		f.IsSet = true
		return nil
	}
	return failure.New(InvalidOutputFormat,
		failure.Message("output format must be text or json"),
		failure.Context{"format": value},
	)
}

func (f *outputFormatFlag) Type() string {
	return "format"
}

var _ pflag.Value = &outputFormatFlag{}
