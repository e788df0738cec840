package execution

import (
	"path/filepath"
	"testing"

	clierr "github.com/ggonzalez94/coinctl/internal/errors"
)

func TestStoreSaveGetList(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenStore(filepath.Join(dir, "history.db"), filepath.Join(dir, "history.lock"))
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	tx, err := authorizedTransferOut(t).Build(InputsFull)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	sub := NewSubmission(NewSubmissionID(), tx, DefaultSubmitOptions())
	if err := store.Save(sub); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Get(sub.SubmissionID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.SubmissionID != sub.SubmissionID {
		t.Fatalf("unexpected submission id: %s", got.SubmissionID)
	}
	if got.Command != "withdraw" {
		t.Fatalf("unexpected command: %s", got.Command)
	}
	if len(got.Transaction.Instructions) != len(tx.Instructions) {
		t.Fatalf("expected %d instructions after round trip, got %d", len(tx.Instructions), len(got.Transaction.Instructions))
	}

	got.State = StateCommitted
	got.Outcome = &Outcome{TransactionID: "tx-1", Status: OutcomeCommitted, StateChanged: true}
	if err := store.Save(got); err != nil {
		t.Fatalf("Save update failed: %v", err)
	}
	committed, err := store.List(string(StateCommitted), 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(committed) != 1 {
		t.Fatalf("expected one committed submission, got %d", len(committed))
	}
	if committed[0].Outcome == nil || committed[0].Outcome.TransactionID != "tx-1" {
		t.Fatalf("expected persisted outcome, got %+v", committed[0].Outcome)
	}
	idle, err := store.List(string(StateIdle), 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(idle) != 0 {
		t.Fatalf("expected no idle submissions, got %d", len(idle))
	}
}

func TestStoreGetMissingSubmission(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenStore(filepath.Join(dir, "history.db"), filepath.Join(dir, "history.lock"))
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.Get("missing")
	if !clierr.HasCode(err, clierr.CodeUsage) {
		t.Fatalf("expected usage error for missing submission, got %v", err)
	}
}
