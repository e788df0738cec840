package execution

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	clierr "github.com/ggonzalez94/coinctl/internal/errors"
)

type ExecuteOptions struct {
	// SingleCall sends a one-instruction sequence through the convenience
	// path with no required inputs.
	SingleCall bool
	Logger     *slog.Logger
}

func (s Submission) SubmitOptions() SubmitOptions {
	return SubmitOptions{
		FeeBudget:   s.FeeBudget,
		DryRun:      s.DryRun,
		DumpBuckets: s.DumpBuckets,
		FeeAccount:  s.FeeAccount,
	}
}

// ExecuteSubmission drives one submission to a terminal state, persisting every
// transition when store is non-nil. A daemon rejection is recorded as an
// outcome and returned as a CodeRejected error.
func ExecuteSubmission(ctx context.Context, store *Store, daemon Daemon, sub *Submission, opts ExecuteOptions) error {
	if sub == nil {
		return clierr.New(clierr.CodeInternal, "missing submission")
	}
	if daemon == nil {
		return clierr.New(clierr.CodeInternal, "missing daemon client")
	}
	if sub.State.Terminal() {
		return clierr.New(clierr.CodeUsage, fmt.Sprintf("submission %s already finished with state %s", sub.SubmissionID, sub.State))
	}
	if err := ValidateWorkspace(sub.Transaction.Instructions); err != nil {
		return err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("submission_id", sub.SubmissionID, "command", sub.Command)

	save := func() {
		if store == nil {
			return
		}
		if err := store.Save(*sub); err != nil {
			logger.Warn("persist submission", "error", err)
		}
	}
	observe := func(state SubmissionState) {
		logger.Debug("submission state", "from", sub.State, "to", state)
		sub.State = state
		sub.Touch()
		save()
	}

	submitOpts := sub.SubmitOptions()
	var (
		outcome Outcome
		err     error
	)
	if opts.SingleCall {
		if len(sub.Transaction.Instructions) != 1 {
			return clierr.New(clierr.CodeBuild, fmt.Sprintf("single-call submission needs exactly one instruction, got %d", len(sub.Transaction.Instructions)))
		}
		outcome, err = daemon.SubmitInstruction(ctx, sub.Transaction.Instructions[0], submitOpts, observe)
	} else {
		outcome, err = daemon.Submit(ctx, NewSubmitRequest(sub.Transaction, submitOpts), observe)
	}
	if err != nil {
		sub.State = stateForError(err)
		sub.Error = err.Error()
		sub.Touch()
		save()
		logger.Debug("submission failed", "state", sub.State, "error", err)
		return err
	}

	if sub.DryRun {
		outcome.DryRun = true
	}
	outcome.StateChanged = outcome.Status == OutcomeCommitted && !outcome.DryRun
	sub.Outcome = &outcome
	sub.Touch()
	if outcome.Status == OutcomeRejected {
		sub.State = StateRejected
		sub.Error = outcome.RejectReason
		save()
		reason := strings.TrimSpace(outcome.RejectReason)
		if reason == "" {
			reason = "no reason given"
		}
		return clierr.New(clierr.CodeRejected, fmt.Sprintf("daemon rejected transaction %s: %s", outcome.TransactionID, reason))
	}
	sub.State = StateCommitted
	sub.Error = ""
	save()
	logger.Debug("submission committed", "transaction_id", outcome.TransactionID, "dry_run", outcome.DryRun)
	return nil
}

// stateForError maps a failed exchange to its terminal state. Errors raised
// before anything reached the daemon leave the submission idle.
func stateForError(err error) SubmissionState {
	cErr, ok := clierr.As(err)
	if !ok {
		return StateTransportFailed
	}
	switch cErr.Code {
	case clierr.CodeBlocked, clierr.CodeUsage, clierr.CodeInternal:
		return StateIdle
	case clierr.CodeAuth:
		return StateAuthFailed
	case clierr.CodeDecode:
		return StateDecodeFailed
	case clierr.CodeTimeout:
		return StateTimedOut
	default:
		return StateTransportFailed
	}
}
