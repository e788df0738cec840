package policy

import (
	"strings"

	clierr "github.com/ggonzalez94/coinctl/internal/errors"
)

func CheckCommandAllowed(allowlist []string, commandPath string) error {
	if len(allowlist) == 0 {
		return nil
	}
	normPath := normalize(commandPath)
	for _, allowed := range allowlist {
		if normalize(allowed) == normPath {
			return nil
		}
	}
	return clierr.New(clierr.CodeBlocked, "command blocked by --enable-commands policy")
}

// CheckReadOnly blocks commands that change ledger state when read-only mode is on.
// Dry runs never change state and are always allowed.
func CheckReadOnly(readOnly bool, commandPath string, mutates, dryRun bool) error {
	if !readOnly || !mutates || dryRun {
		return nil
	}
	return clierr.New(clierr.CodeBlocked, "command "+normalize(commandPath)+" mutates state and --read-only is set")
}

func normalize(v string) string {
	parts := strings.Fields(strings.ToLower(strings.TrimSpace(v)))
	return strings.Join(parts, " ")
}
