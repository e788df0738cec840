package id

import (
	"testing"

	clierr "github.com/ggonzalez94/coinctl/internal/errors"
)

func TestParseArgInfersTypes(t *testing.T) {
	cases := []struct {
		in   string
		want Value
	}{
		{in: "42", want: U64(42)},
		{in: "-7", want: I64(-7)},
		{in: "true", want: Bool(true)},
		{in: "COIN", want: String("COIN")},
		{in: `"42"`, want: String("42")},
		{in: "component_" + hexA, want: Value{Type: TypeComponent, Value: "component_" + hexA}},
		{in: "resource_" + hexA, want: Value{Type: TypeResource, Value: "resource_" + hexA}},
	}
	for _, tc := range cases {
		got, err := ParseArg(tc.in)
		if err != nil {
			t.Fatalf("ParseArg(%q) failed: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseArg(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestParseArgRangeAndAddressErrors(t *testing.T) {
	if _, err := ParseArg("99999999999999999999"); !clierr.HasCode(err, clierr.CodeBuild) {
		t.Fatalf("expected build error for overflow, got %v", err)
	}
	if _, err := ParseArg("component_xyz"); !clierr.HasCode(err, clierr.CodeUsage) {
		t.Fatalf("expected usage error for bad address, got %v", err)
	}
}

func TestValueAddressOf(t *testing.T) {
	addr, _ := ParseVault(hexA)
	v := AddressValue(addr)
	if v.Type != TypeVault {
		t.Fatalf("unexpected type: %s", v.Type)
	}
	got, ok := v.AddressOf()
	if !ok || got != addr {
		t.Fatalf("AddressOf mismatch: %v %s", ok, got)
	}
	if _, ok := U64(1).AddressOf(); ok {
		t.Fatal("integers carry no address")
	}
}
