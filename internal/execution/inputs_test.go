package execution

import (
	"testing"

	clierr "github.com/ggonzalez94/coinctl/internal/errors"
	"github.com/ggonzalez94/coinctl/internal/id"
)

func requirementIDs(reqs []SubstateRequirement) []string {
	out := make([]string, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, r.String())
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBuildFullInputsIncludeProofAccountAndBadge(t *testing.T) {
	tx, err := authorizedTransferOut(t).Build(InputsFull)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	want := []string{
		"component_" + testHex("c"),
		"component_" + testHex("a"),
		"resource_" + testHex("b"),
	}
	if got := requirementIDs(tx.RequiredInputs); !equalStrings(got, want) {
		t.Fatalf("unexpected required inputs\n got: %v\nwant: %v", got, want)
	}
}

func TestBuildFullInputsKeepPinnedBadgeRecord(t *testing.T) {
	b := authorizedTransferOut(t)
	record, err := ParseSubstateRequirement("nft_" + testHex("b") + "_str_admin")
	if err != nil {
		t.Fatalf("ParseSubstateRequirement: %v", err)
	}
	b.Require(record)
	tx, err := b.Build(InputsFull)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	want := []string{
		"component_" + testHex("c"),
		"component_" + testHex("a"),
		"resource_" + testHex("b"),
		"nft_" + testHex("b") + "_str_admin",
	}
	if got := requirementIDs(tx.RequiredInputs); !equalStrings(got, want) {
		t.Fatalf("unexpected required inputs\n got: %v\nwant: %v", got, want)
	}
}

func TestBuildCompatInputsOnlyTarget(t *testing.T) {
	b := authorizedTransferOut(t)
	extra, err := ParseSubstateRequirement("vault_" + testHex("d") + ":4")
	if err != nil {
		t.Fatalf("ParseSubstateRequirement: %v", err)
	}
	b.Require(extra)
	tx, err := b.Build(InputsCompat)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	want := []string{"component_" + testHex("c"), "vault_" + testHex("d") + ":4"}
	if got := requirementIDs(tx.RequiredInputs); !equalStrings(got, want) {
		t.Fatalf("unexpected required inputs\n got: %v\nwant: %v", got, want)
	}
}

func TestDeriveRequiredInputsVaultArgsAndVersionMerge(t *testing.T) {
	vault, err := id.ParseVault(testHex("d"))
	if err != nil {
		t.Fatalf("ParseVault: %v", err)
	}
	coin := mustComponent(t, "c")
	version := uint32(7)
	extra := []SubstateRequirement{
		{SubstateID: coin.SubstateID(), Version: &version},
		Require("nft_" + testHex("b") + "_u64_1"),
	}
	got := DeriveRequiredInputs([]Instruction{
		CallMethod(coin, "sweep", Literal(id.AddressValue(vault))),
		CallFunction(mustTemplate(t, "f"), "new"),
	}, extra)
	want := []string{
		"component_" + testHex("c") + ":7",
		"vault_" + testHex("d"),
		"nft_" + testHex("b") + "_u64_1",
	}
	if ids := requirementIDs(got); !equalStrings(ids, want) {
		t.Fatalf("unexpected derived inputs\n got: %v\nwant: %v", ids, want)
	}
}

func TestFunctionCallHasNoDerivedInputs(t *testing.T) {
	b := NewBuilder("instantiate", ShapeSingleCall)
	b.CallFunction(mustTemplate(t, "f"), "instantiate", Literal(id.Amount(1000)))
	tx, err := b.Build(InputsFull)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(tx.RequiredInputs) != 0 {
		t.Fatalf("expected no required inputs, got %v", requirementIDs(tx.RequiredInputs))
	}
	if tx.RequiredInputs == nil {
		t.Fatal("expected empty, non-nil required inputs")
	}
}

func TestParseSubstateRequirementErrors(t *testing.T) {
	if _, err := ParseSubstateRequirement("component_" + testHex("c") + ":x"); !clierr.HasCode(err, clierr.CodeUsage) {
		t.Fatalf("expected usage error for bad version, got %v", err)
	}
	if _, err := ParseSubstateRequirement("account_" + testHex("c")); !clierr.HasCode(err, clierr.CodeUsage) {
		t.Fatalf("expected usage error for unknown prefix, got %v", err)
	}
}

func TestParseInputsMode(t *testing.T) {
	if mode, err := ParseInputsMode(""); err != nil || mode != InputsFull {
		t.Fatalf("expected full default, got %q %v", mode, err)
	}
	if mode, err := ParseInputsMode("COMPAT"); err != nil || mode != InputsCompat {
		t.Fatalf("expected compat, got %q %v", mode, err)
	}
	if _, err := ParseInputsMode("minimal"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
