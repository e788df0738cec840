package id

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	clierr "github.com/ggonzalez94/coinctl/internal/errors"
)

type ValueType string

const (
	TypeU64       ValueType = "u64"
	TypeI64       ValueType = "i64"
	TypeAmount    ValueType = "amount"
	TypeBool      ValueType = "bool"
	TypeString    ValueType = "string"
	TypeComponent ValueType = "component_address"
	TypeResource  ValueType = "resource_address"
	TypeVault     ValueType = "vault_address"
)

// Value is one encoded call argument.
type Value struct {
	Type  ValueType `json:"type"`
	Value string    `json:"value"`
}

func U64(v uint64) Value { return Value{Type: TypeU64, Value: strconv.FormatUint(v, 10)} }

func I64(v int64) Value { return Value{Type: TypeI64, Value: strconv.FormatInt(v, 10)} }

func Amount(v int64) Value { return Value{Type: TypeAmount, Value: strconv.FormatInt(v, 10)} }

func Bool(v bool) Value { return Value{Type: TypeBool, Value: strconv.FormatBool(v)} }

func String(v string) Value { return Value{Type: TypeString, Value: v} }

// AddressValue encodes a substate address with its matching type tag.
func AddressValue(addr Address) Value {
	switch addr.Kind {
	case KindResource:
		return Value{Type: TypeResource, Value: addr.String()}
	case KindVault:
		return Value{Type: TypeVault, Value: addr.String()}
	default:
		return Value{Type: TypeComponent, Value: addr.String()}
	}
}

// AddressOf returns the address carried by an address-typed value.
func (v Value) AddressOf() (Address, bool) {
	var kind Kind
	switch v.Type {
	case TypeComponent:
		kind = KindComponent
	case TypeResource:
		kind = KindResource
	case TypeVault:
		kind = KindVault
	default:
		return Address{}, false
	}
	addr, err := parseAddress(kind, v.Value)
	if err != nil {
		return Address{}, false
	}
	return addr, true
}

// ParseArg infers the type of a free-form argument: addresses by prefix,
// true/false, integers (u64, or i64 when negative), quoted or bare strings.
func ParseArg(input string) (Value, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return String(""), nil
	}
	if len(raw) >= 2 && strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`) {
		unquoted, err := strconv.Unquote(raw)
		if err != nil {
			return Value{}, clierr.Wrap(clierr.CodeUsage, fmt.Sprintf("invalid quoted argument %s", raw), err)
		}
		return String(unquoted), nil
	}
	for _, kind := range substateKinds {
		if strings.HasPrefix(raw, string(kind)+"_") {
			addr, err := parseAddress(kind, raw)
			if err != nil {
				return Value{}, err
			}
			return AddressValue(addr), nil
		}
	}
	switch raw {
	case "true":
		return Bool(true), nil
	case "false":
		return Bool(false), nil
	}
	if integerLike(raw) {
		if strings.HasPrefix(raw, "-") {
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return Value{}, rangeError(raw, "i64", err)
			}
			return I64(v), nil
		}
		v, err := strconv.ParseUint(strings.TrimPrefix(raw, "+"), 10, 64)
		if err != nil {
			return Value{}, rangeError(raw, "u64", err)
		}
		return U64(v), nil
	}
	return String(raw), nil
}

func integerLike(v string) bool {
	body := strings.TrimLeft(v, "+-")
	if body == "" || len(v)-len(body) > 1 {
		return false
	}
	for _, r := range body {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func rangeError(raw, typ string, err error) error {
	if errors.Is(err, strconv.ErrRange) {
		return clierr.New(clierr.CodeBuild, fmt.Sprintf("argument %s is out of range for %s", raw, typ))
	}
	return clierr.Wrap(clierr.CodeUsage, fmt.Sprintf("invalid integer argument %s", raw), err)
}
