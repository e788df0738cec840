package execution

import (
	"strings"
	"testing"

	"github.com/ggonzalez94/coinctl/internal/id"
)

func testHex(digit string) string {
	return strings.Repeat(digit, 64)
}

func mustComponent(t *testing.T, digit string) id.Address {
	t.Helper()
	addr, err := id.ParseComponent(testHex(digit))
	if err != nil {
		t.Fatalf("ParseComponent: %v", err)
	}
	return addr
}

func mustResource(t *testing.T, digit string) id.Address {
	t.Helper()
	addr, err := id.ParseResource(testHex(digit))
	if err != nil {
		t.Fatalf("ParseResource: %v", err)
	}
	return addr
}

func mustTemplate(t *testing.T, digit string) id.Address {
	t.Helper()
	addr, err := id.ParseTemplate(testHex(digit))
	if err != nil {
		t.Fatalf("ParseTemplate: %v", err)
	}
	return addr
}

func authorizedTransferOut(t *testing.T) *Builder {
	t.Helper()
	account := mustComponent(t, "a")
	badge := mustResource(t, "b")
	coin := mustComponent(t, "c")
	b := NewBuilder("withdraw", ShapeAuthorizedTransfer)
	b.Target(coin)
	b.CreateProof(account, badge)
	b.PutOnWorkspace("proof")
	b.CallMethod(coin, "withdraw", Literal(id.U64(10)))
	b.PutOnWorkspace("bucket")
	b.CallMethod(account, "deposit", Workspace("bucket"))
	b.DropAllProofs()
	return b
}
