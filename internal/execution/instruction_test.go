package execution

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/ggonzalez94/coinctl/internal/id"
)

func TestInstructionJSONTagging(t *testing.T) {
	coin := mustComponent(t, "c")
	cases := []struct {
		name string
		in   Instruction
		want string
	}{
		{
			name: "call method",
			in:   CallMethod(coin, "increase_supply", Literal(id.Amount(123))),
			want: `{"CallMethod":{"component_address":"component_` + testHex("c") + `","method":"increase_supply","args":[{"Literal":{"type":"amount","value":"123"}}]}}`,
		},
		{
			name: "workspace arg",
			in:   CallMethod(coin, "deposit", Workspace("bucket")),
			want: `{"CallMethod":{"component_address":"component_` + testHex("c") + `","method":"deposit","args":[{"Workspace":"bucket"}]}}`,
		},
		{
			name: "call method without args",
			in:   CallMethod(coin, "total_supply"),
			want: `{"CallMethod":{"component_address":"component_` + testHex("c") + `","method":"total_supply","args":[]}}`,
		},
		{
			name: "put",
			in:   PutLastInstructionOutputOnWorkspace("proof"),
			want: `{"PutLastInstructionOutputOnWorkspace":{"key":"proof"}}`,
		},
		{
			name: "drop",
			in:   DropAllProofsInWorkspace(),
			want: `"DropAllProofsInWorkspace"`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := json.Marshal(tc.in)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(got) != tc.want {
				t.Fatalf("unexpected json\n got: %s\nwant: %s", got, tc.want)
			}
		})
	}
}

func TestInstructionJSONDecodesEveryVariant(t *testing.T) {
	in := []Instruction{
		CreateProof(mustComponent(t, "a"), mustResource(t, "b")),
		PutLastInstructionOutputOnWorkspace("proof"),
		CallFunction(mustTemplate(t, "f"), "instantiate", Literal(id.Amount(5)), Literal(id.String("COIN"))),
		CallMethod(mustComponent(t, "c"), "deposit", Workspace("bucket")),
		DropAllProofsInWorkspace(),
	}
	buf, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out []Instruction
	if err := json.Unmarshal(buf, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("decoded instructions differ\n in: %+v\nout: %+v", in, out)
	}
}

func TestInstructionJSONRejectsUnknownVariant(t *testing.T) {
	var ins Instruction
	err := json.Unmarshal([]byte(`{"EmitLog":{"message":"hi"}}`), &ins)
	if err == nil || !strings.Contains(err.Error(), "unknown instruction kind") {
		t.Fatalf("expected unknown kind error, got %v", err)
	}
	if err := json.Unmarshal([]byte(`"Halt"`), &ins); err == nil {
		t.Fatal("expected unknown unit instruction error")
	}
}

func TestArgRejectsAmbiguousEncoding(t *testing.T) {
	var arg Arg
	if err := json.Unmarshal([]byte(`{"Literal":{"type":"u64","value":"1"},"Workspace":"bucket"}`), &arg); err == nil {
		t.Fatal("expected error for arg with both literal and workspace")
	}
	if err := json.Unmarshal([]byte(`{}`), &arg); err == nil {
		t.Fatal("expected error for empty arg")
	}
}
