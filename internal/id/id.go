package id

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	clierr "github.com/ggonzalez94/coinctl/internal/errors"
)

// AddressLength is the byte length of every engine object address.
const AddressLength = 32

type Kind string

const (
	KindComponent Kind = "component"
	KindResource  Kind = "resource"
	KindVault     Kind = "vault"
	KindTemplate  Kind = "template"
)

var (
	hexAddressPattern  = regexp.MustCompile(`^(0x)?[0-9a-fA-F]{64}$`)
	nonFungiblePattern = regexp.MustCompile(`^nft_[0-9a-fA-F]{64}_(str|u32|u64|uuid)_[0-9A-Za-z_-]+$`)
)

var substateKinds = []Kind{KindComponent, KindResource, KindVault}

// Address identifies a component, resource, vault or template.
type Address struct {
	Kind Kind
	Hash [AddressLength]byte
}

func (a Address) IsZero() bool {
	return a.Hash == [AddressLength]byte{}
}

// Hex returns the lowercase hex body without kind prefix.
func (a Address) Hex() string {
	return strings.TrimPrefix(hexutil.Encode(a.Hash[:]), "0x")
}

// String renders substate addresses as "<kind>_<hex>" and templates as bare hex.
func (a Address) String() string {
	if a.Kind == KindTemplate || a.Kind == "" {
		return a.Hex()
	}
	return string(a.Kind) + "_" + a.Hex()
}

// SubstateID is the daemon's identifier for the persisted object, empty for templates.
func (a Address) SubstateID() string {
	if a.Kind == KindTemplate || a.Kind == "" {
		return ""
	}
	return a.String()
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	raw := string(text)
	for _, kind := range substateKinds {
		if strings.HasPrefix(raw, string(kind)+"_") {
			parsed, err := parseAddress(kind, raw)
			if err != nil {
				return err
			}
			*a = parsed
			return nil
		}
	}
	parsed, err := parseAddress(KindTemplate, raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func ParseComponent(input string) (Address, error) {
	return parseAddress(KindComponent, input)
}

func ParseResource(input string) (Address, error) {
	return parseAddress(KindResource, input)
}

func ParseVault(input string) (Address, error) {
	return parseAddress(KindVault, input)
}

// ParseTemplate accepts bare hex, 0x-prefixed hex or "template_<hex>".
func ParseTemplate(input string) (Address, error) {
	return parseAddress(KindTemplate, input)
}

func parseAddress(kind Kind, input string) (Address, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Address{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("%s address is required", kind))
	}
	body := strings.TrimPrefix(raw, string(kind)+"_")
	if body == raw {
		for _, other := range substateKinds {
			if other != kind && strings.HasPrefix(raw, string(other)+"_") {
				return Address{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("expected %s address, got %s address %q", kind, other, raw))
			}
		}
	}
	if !hexAddressPattern.MatchString(body) {
		return Address{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("invalid %s address %q: expected %d hex-encoded bytes", kind, raw, AddressLength))
	}
	if !strings.HasPrefix(body, "0x") {
		body = "0x" + body
	}
	buf, err := hexutil.Decode(strings.ToLower(body))
	if err != nil {
		return Address{}, clierr.Wrap(clierr.CodeUsage, fmt.Sprintf("invalid %s address %q", kind, raw), err)
	}
	out := Address{Kind: kind}
	copy(out.Hash[:], buf)
	return out, nil
}

// ParseSubstateID validates a substate identifier: a component, resource or
// vault address, or a non-fungible record "nft_<resource hex>_<type>_<id>".
func ParseSubstateID(input string) (string, error) {
	raw := strings.TrimSpace(input)
	if strings.HasPrefix(raw, "nft_") {
		if !nonFungiblePattern.MatchString(raw) {
			return "", clierr.New(clierr.CodeUsage, fmt.Sprintf("invalid non-fungible substate id %q", raw))
		}
		return strings.ToLower(raw[:68]) + raw[68:], nil
	}
	for _, kind := range substateKinds {
		if strings.HasPrefix(raw, string(kind)+"_") {
			addr, err := parseAddress(kind, raw)
			if err != nil {
				return "", err
			}
			return addr.String(), nil
		}
	}
	return "", clierr.New(clierr.CodeUsage, fmt.Sprintf("unsupported substate id %q (expected component_, resource_, vault_ or nft_ prefix)", raw))
}
