package id

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	clierr "github.com/ggonzalez94/coinctl/internal/errors"
)

// ParseUint64 parses a non-negative integer argument. Text that is not an
// integer is a usage error; an integer that does not fit is a build error.
func ParseUint64(name, input string) (uint64, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return 0, clierr.New(clierr.CodeUsage, fmt.Sprintf("%s is required", name))
	}
	if strings.HasPrefix(raw, "-") {
		if _, err := strconv.ParseInt(raw, 10, 64); err == nil || errors.Is(err, strconv.ErrRange) {
			return 0, clierr.New(clierr.CodeBuild, fmt.Sprintf("%s %s is out of range for u64", name, raw))
		}
		return 0, clierr.New(clierr.CodeUsage, fmt.Sprintf("%s must be an integer, got %q", name, raw))
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, clierr.New(clierr.CodeBuild, fmt.Sprintf("%s %s is out of range for u64", name, raw))
		}
		return 0, clierr.New(clierr.CodeUsage, fmt.Sprintf("%s must be an integer, got %q", name, raw))
	}
	return v, nil
}

// ParseAmount parses an engine amount, a signed 64-bit quantity that must be positive.
func ParseAmount(name, input string) (int64, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return 0, clierr.New(clierr.CodeUsage, fmt.Sprintf("%s is required", name))
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, clierr.New(clierr.CodeBuild, fmt.Sprintf("%s %s is out of range for amount", name, raw))
		}
		return 0, clierr.New(clierr.CodeUsage, fmt.Sprintf("%s must be an integer, got %q", name, raw))
	}
	if v <= 0 {
		return 0, clierr.New(clierr.CodeBuild, fmt.Sprintf("%s must be positive, got %d", name, v))
	}
	return v, nil
}
