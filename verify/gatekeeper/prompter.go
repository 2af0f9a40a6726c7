// Package gatekeeper provides interactive confirmation of trust-on-first-use
// bootstraps. Trusting whatever key the keyserver returns on first contact
// is inherently unsafe, so when a terminal is available the user gets to see
// what is about to be pinned before it happens.
package gatekeeper

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"

	"github.com/jsha/gpg-download-verifier/verify/values"
)

// TerminalPrompter implements ports.BootstrapPrompter on the controlling
// terminal.
type TerminalPrompter struct{}

// NewTerminalPrompter creates a new TerminalPrompter.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{}
}

// IsInteractive checks if we're running in an interactive terminal.
func (p *TerminalPrompter) IsInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// ConfirmBootstrap asks the user whether to trust keyID as the signing key
// for a package never seen before. Declining aborts the verification and
// leaves no trust state behind.
func (p *TerminalPrompter) ConfirmBootstrap(pkg values.PackageID, keyID string) (bool, error) {
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "\033[1;33mFirst contact with package %q\033[0m\n\n", pkg.String())
	fmt.Fprintf(os.Stderr, "  The signing key %s is not yet trusted.\n", keyID)
	fmt.Fprintf(os.Stderr, "  Accepting pins it permanently: all future downloads of this\n")
	fmt.Fprintf(os.Stderr, "  package will be checked against it, with no further retrieval.\n")
	fmt.Fprintf(os.Stderr, "\n")

	const (
		optionTrust = "Trust this key and pin it for the package"
		optionAbort = "Do not trust, abort verification"
	)

	var selection string
	err := huh.NewSelect[string]().
		Title("Trust New Signing Key?").
		Description(fmt.Sprintf("Package %q, key %s", pkg.String(), keyID)).
		Options(
			huh.NewOption(optionTrust, optionTrust),
			huh.NewOption(optionAbort, optionAbort),
		).
		Value(&selection).
		Run()
	if err != nil {
		return false, err
	}

	return selection == optionTrust, nil
}
