package scaffold

import (
	"fmt"
	"strings"

	"github.com/morikuni/failure/v2"
)

// MaxPackageNameLength is the longest package name accepted by the
// generators.
const MaxPackageNameLength = 64

const invalidPackageNameMessage = "invalid package name - must be non-empty, not longer than 64 characters and only contain ASCII alphanumerics, hyphens & underscores"

// Versions pins the crate versions written into generated manifests.
type Versions struct {
	AlloyPrimitives    string `yaml:"alloy_primitives"`
	AlloySolTypes      string `yaml:"alloy_sol_types"`
	OpenZeppelinStylus string `yaml:"openzeppelin_stylus"`
	StylusSDK          string `yaml:"stylus_sdk"`
	Arbitrary          string `yaml:"arbitrary"`
	Motsu              string `yaml:"motsu"`
}

// DefaultVersions returns the versions the handbook examples build with.
func DefaultVersions() Versions {
	return Versions{
		AlloyPrimitives:    "=0.8.20",
		AlloySolTypes:      "=0.8.20",
		OpenZeppelinStylus: "0.3.0",
		StylusSDK:          "=0.9.0",
		Arbitrary:          "=1.4.2",
		Motsu:              "0.10.0",
	}
}

// WithDefaults fills empty versions from DefaultVersions.
func (v Versions) WithDefaults() Versions {
	d := DefaultVersions()
	v.AlloyPrimitives = orDefault(v.AlloyPrimitives, d.AlloyPrimitives)
	v.AlloySolTypes = orDefault(v.AlloySolTypes, d.AlloySolTypes)
	v.OpenZeppelinStylus = orDefault(v.OpenZeppelinStylus, d.OpenZeppelinStylus)
	v.StylusSDK = orDefault(v.StylusSDK, d.StylusSDK)
	v.Arbitrary = orDefault(v.Arbitrary, d.Arbitrary)
	v.Motsu = orDefault(v.Motsu, d.Motsu)
	return v
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// ValidatePackageName checks name against the Cargo package name rules
// enforced by the generators.
func ValidatePackageName(name string) error {
	valid := name != "" && len(name) <= MaxPackageNameLength
	for i := 0; valid && i < len(name); i++ {
		c := name[i]
		valid = c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_'
	}
	if !valid {
		return failure.New(InvalidPackageName,
			failure.Message(invalidPackageNameMessage),
			failure.Context{"package_name": name},
		)
	}
	return nil
}

const cargoManifestTemplate = `
[package]
name = "%[1]s"
version = "0.1.0"
edition = "2021"

[features]
export-abi = ["stylus-sdk/export-abi", "openzeppelin-stylus/export-abi"]

[dependencies]
alloy-primitives = "%[2]s"
alloy-sol-types = "%[3]s"
openzeppelin-stylus = "%[4]s"
stylus-sdk = "%[5]s"

[dev-dependencies]
alloy-primitives = { version = "%[2]s", features = [ "tiny-keccak" ] }
arbitrary = { version = "%[6]s", features = [ "derive" ] }
motsu = "%[7]s"`

// CargoManifest renders the Cargo.toml of a new Stylus contract.
func CargoManifest(packageName string, v Versions) (string, error) {
	if err := ValidatePackageName(packageName); err != nil {
		return "", err
	}
	v = v.WithDefaults()
	return fmt.Sprintf(cargoManifestTemplate,
		packageName,
		v.AlloyPrimitives,
		v.AlloySolTypes,
		v.OpenZeppelinStylus,
		v.StylusSDK,
		v.Arbitrary,
		v.Motsu,
	), nil
}

const mainRSTemplate = `
#![cfg_attr(not(any(test, feature = "export-abi")), no_main)]

#[cfg(not(any(test, feature = "export-abi")))]
#[no_mangle]
pub extern "C" fn main() {}

#[cfg(feature = "export-abi")]
fn main() {
    %s::print_from_args();
}
`

// MainRS renders src/main.rs of a new Stylus contract. The crate path uses
// underscores in place of hyphens.
func MainRS(packageName string) (string, error) {
	if err := ValidatePackageName(packageName); err != nil {
		return "", err
	}
	return fmt.Sprintf(mainRSTemplate, strings.ReplaceAll(packageName, "-", "_")), nil
}
