package app

import (
	cliflag "k8s.io/component-base/cli/flag"
)

// NamedFlagSetOptions is implemented by a command's option tree.
type NamedFlagSetOptions interface {
	// Flags returns the option flags grouped by section for --help.
	Flags() cliflag.NamedFlagSets

	// Complete fills derived and defaulted fields after parsing.
	Complete() error

	// Validate reports every invalid option at once.
	Validate() error
}
