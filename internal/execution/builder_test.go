package execution

import (
	"encoding/json"
	"strings"
	"testing"

	clierr "github.com/ggonzalez94/coinctl/internal/errors"
	"github.com/ggonzalez94/coinctl/internal/id"
)

func TestBuildAuthorizedTransferOut(t *testing.T) {
	tx, err := authorizedTransferOut(t).Build(InputsFull)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if tx.Command != "withdraw" || tx.Shape != ShapeAuthorizedTransfer {
		t.Fatalf("unexpected transaction header: %+v", tx)
	}
	if len(tx.Instructions) != 6 {
		t.Fatalf("expected 6 instructions, got %d", len(tx.Instructions))
	}
	if tx.Instructions[len(tx.Instructions)-1].Kind != InstructionDropAllProofs {
		t.Fatalf("expected trailing release, got %s", tx.Instructions[len(tx.Instructions)-1].Kind)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	first, err := authorizedTransferOut(t).Build(InputsFull)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	second, err := authorizedTransferOut(t).Build(InputsFull)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Fatalf("expected identical encodings\n%s\n%s", a, b)
	}
}

func TestValidateWorkspaceErrors(t *testing.T) {
	account := mustComponent(t, "a")
	badge := mustResource(t, "b")
	coin := mustComponent(t, "c")
	cases := []struct {
		name  string
		seq   []Instruction
		match string
	}{
		{
			name:  "empty",
			seq:   nil,
			match: "no instructions",
		},
		{
			name:  "reference before bind",
			seq:   []Instruction{CallMethod(coin, "deposit", Workspace("bucket"))},
			match: "referenced before it is bound",
		},
		{
			name: "forward reference",
			seq: []Instruction{
				CallMethod(coin, "deposit", Workspace("bucket")),
				CallMethod(coin, "withdraw"),
				PutLastInstructionOutputOnWorkspace("bucket"),
			},
			match: "referenced before it is bound",
		},
		{
			name: "unconsumed bucket",
			seq: []Instruction{
				CallMethod(coin, "withdraw"),
				PutLastInstructionOutputOnWorkspace("bucket"),
			},
			match: "never consumed: bucket",
		},
		{
			name: "double consume",
			seq: []Instruction{
				CallMethod(coin, "withdraw"),
				PutLastInstructionOutputOnWorkspace("bucket"),
				CallMethod(account, "deposit", Workspace("bucket")),
				CallMethod(account, "deposit", Workspace("bucket")),
			},
			match: "consumed more than once",
		},
		{
			name: "rebind while unconsumed",
			seq: []Instruction{
				CallMethod(coin, "withdraw"),
				PutLastInstructionOutputOnWorkspace("bucket"),
				CallMethod(coin, "withdraw"),
				PutLastInstructionOutputOnWorkspace("bucket"),
			},
			match: "already bound",
		},
		{
			name: "put without output",
			seq: []Instruction{
				PutLastInstructionOutputOnWorkspace("bucket"),
			},
			match: "does not follow an instruction that produces output",
		},
		{
			name: "put after put",
			seq: []Instruction{
				CallMethod(coin, "withdraw"),
				PutLastInstructionOutputOnWorkspace("a"),
				PutLastInstructionOutputOnWorkspace("b"),
			},
			match: "does not follow an instruction that produces output",
		},
		{
			name: "proof never released",
			seq: []Instruction{
				CreateProof(account, badge),
				PutLastInstructionOutputOnWorkspace("proof"),
				CallMethod(coin, "increase_supply", Literal(id.Amount(1))),
			},
			match: "never released",
		},
		{
			name: "release without acquire",
			seq: []Instruction{
				CallMethod(coin, "total_supply"),
				DropAllProofsInWorkspace(),
			},
			match: "without a matching create_proof",
		},
		{
			name: "release not last",
			seq: []Instruction{
				CreateProof(account, badge),
				PutLastInstructionOutputOnWorkspace("proof"),
				DropAllProofsInWorkspace(),
				CallMethod(coin, "increase_supply", Literal(id.Amount(1))),
			},
			match: "must end by releasing",
		},
		{
			name:  "missing method",
			seq:   []Instruction{CallMethod(coin, " ")},
			match: "component address and method name",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateWorkspace(tc.seq)
			if err == nil {
				t.Fatalf("expected build error containing %q", tc.match)
			}
			if !clierr.HasCode(err, clierr.CodeBuild) {
				t.Fatalf("expected build error code, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.match) {
				t.Fatalf("expected %q in error, got %v", tc.match, err)
			}
		})
	}
}

func TestValidateWorkspaceAllowsRebindAfterConsume(t *testing.T) {
	a := mustComponent(t, "a")
	b := mustComponent(t, "b")
	seq := []Instruction{
		CallMethod(a, "withdraw"),
		PutLastInstructionOutputOnWorkspace("bucket"),
		CallMethod(b, "deposit", Workspace("bucket")),
		CallMethod(b, "withdraw"),
		PutLastInstructionOutputOnWorkspace("bucket"),
		CallMethod(a, "deposit", Workspace("bucket")),
	}
	if err := ValidateWorkspace(seq); err != nil {
		t.Fatalf("expected valid sequence, got %v", err)
	}
}

func TestValidateWorkspaceProofReferenceDoesNotConsume(t *testing.T) {
	account := mustComponent(t, "a")
	badge := mustResource(t, "b")
	coin := mustComponent(t, "c")
	seq := []Instruction{
		CreateProof(account, badge),
		PutLastInstructionOutputOnWorkspace("proof"),
		CallMethod(coin, "check", Workspace("proof")),
		CallMethod(coin, "check", Workspace("proof")),
		DropAllProofsInWorkspace(),
	}
	if err := ValidateWorkspace(seq); err != nil {
		t.Fatalf("expected valid sequence, got %v", err)
	}
}

func TestBuilderBuildDoesNotAliasInstructions(t *testing.T) {
	b := NewBuilder("total-supply", ShapeSimpleInvoke)
	coin := mustComponent(t, "c")
	b.Target(coin)
	b.CallMethod(coin, "total_supply")
	tx, err := b.Build(InputsFull)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	b.CallMethod(coin, "total_supply")
	if len(tx.Instructions) != 1 {
		t.Fatalf("built transaction changed after append: %d instructions", len(tx.Instructions))
	}
}
