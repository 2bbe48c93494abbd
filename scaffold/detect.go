package scaffold

import (
	"github.com/BurntSushi/toml"
	"github.com/morikuni/failure/v2"
)

// ProgramKind is the flavour of a Solana program.
type ProgramKind string

const (
	Anchor ProgramKind = "anchor"
	Native ProgramKind = "native"
)

type cargoManifest struct {
	Package      map[string]any `toml:"package"`
	Dependencies map[string]any `toml:"dependencies"`
}

// DetectProgramKind classifies a Solana program from its Cargo.toml.
// anchor-lang wins over solana-program since Anchor programs usually pull
// in both.
func DetectProgramKind(manifest string) (ProgramKind, error) {
	var m cargoManifest
	if _, err := toml.Decode(manifest, &m); err != nil {
		return "", failure.Wrap(err,
			failure.WithCode(InvalidManifest),
			failure.Message("invalid cargo manifest file"),
		)
	}
	if m.Package == nil || m.Dependencies == nil {
		return "", failure.New(InvalidManifest,
			failure.Message("invalid cargo manifest file"),
			failure.Context{"reason": "missing [package] or [dependencies]"},
		)
	}

	if _, ok := m.Dependencies["anchor-lang"]; ok {
		return Anchor, nil
	}
	if _, ok := m.Dependencies["solana-program"]; ok {
		return Native, nil
	}
	return "", failure.New(UnknownProgramKind,
		failure.Message("no solana program kind detected, are you sure this is the correct Cargo.toml file?"),
	)
}
