package execution

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	clierr "github.com/ggonzalez94/coinctl/internal/errors"
	"github.com/ggonzalez94/coinctl/internal/id"
	"github.com/google/uuid"
)

type Shape string

const (
	ShapeSimpleInvoke       Shape = "simple_invoke"
	ShapeSingleCall         Shape = "single_call"
	ShapeAuthorizedInvoke   Shape = "authorized_invoke"
	ShapeAuthorizedTransfer Shape = "authorized_transfer_out"
	ShapeTwoHopTransfer     Shape = "two_hop_transfer"
)

// Transaction is a validated instruction sequence with its declared inputs.
type Transaction struct {
	Command        string                `json:"command"`
	Shape          Shape                 `json:"shape"`
	Target         string                `json:"target,omitempty"`
	Instructions   []Instruction         `json:"instructions"`
	RequiredInputs []SubstateRequirement `json:"required_inputs"`
}

// SubstateRequirement declares an object the daemon must lock, optionally pinned to a version.
type SubstateRequirement struct {
	SubstateID string  `json:"substate_id"`
	Version    *uint32 `json:"version"`
}

func Require(substateID string) SubstateRequirement {
	return SubstateRequirement{SubstateID: substateID}
}

func RequireAddress(addr id.Address) SubstateRequirement {
	return SubstateRequirement{SubstateID: addr.SubstateID()}
}

func (r SubstateRequirement) String() string {
	if r.Version == nil {
		return r.SubstateID
	}
	return fmt.Sprintf("%s:%d", r.SubstateID, *r.Version)
}

// ParseSubstateRequirement parses "<substate id>" or "<substate id>:<version>".
func ParseSubstateRequirement(input string) (SubstateRequirement, error) {
	raw := strings.TrimSpace(input)
	idPart, versionPart, hasVersion := strings.Cut(raw, ":")
	substateID, err := id.ParseSubstateID(idPart)
	if err != nil {
		return SubstateRequirement{}, err
	}
	req := SubstateRequirement{SubstateID: substateID}
	if hasVersion {
		v, err := strconv.ParseUint(strings.TrimSpace(versionPart), 10, 32)
		if err != nil {
			return SubstateRequirement{}, clierr.Wrap(clierr.CodeUsage, fmt.Sprintf("invalid version in required input %q", raw), err)
		}
		version := uint32(v)
		req.Version = &version
	}
	return req, nil
}

type SubmissionState string

const (
	StateIdle               SubmissionState = "idle"
	StateAwaitingConnection SubmissionState = "awaiting_connection"
	StateAwaitingResult     SubmissionState = "awaiting_result"
	StateCommitted          SubmissionState = "committed"
	StateRejected           SubmissionState = "rejected"
	StateTransportFailed    SubmissionState = "transport_failed"
	StateAuthFailed         SubmissionState = "auth_failed"
	StateDecodeFailed       SubmissionState = "decode_failed"
	StateTimedOut           SubmissionState = "timed_out"
)

func (s SubmissionState) Terminal() bool {
	switch s {
	case StateIdle, StateAwaitingConnection, StateAwaitingResult:
		return false
	default:
		return true
	}
}

// StateFunc observes submission state transitions.
type StateFunc func(SubmissionState)

type OutcomeStatus string

const (
	OutcomeCommitted OutcomeStatus = "committed"
	OutcomeRejected  OutcomeStatus = "rejected"
)

// Bucket is an intermediate value container echoed back when outputs are dumped.
type Bucket struct {
	BucketID        uint32 `json:"bucket_id"`
	ResourceAddress string `json:"resource_address"`
	Amount          int64  `json:"amount"`
}

// Outcome is the decoded terminal result of one submission.
type Outcome struct {
	TransactionID string            `json:"transaction_id"`
	Status        OutcomeStatus     `json:"status"`
	DryRun        bool              `json:"dry_run"`
	StateChanged  bool              `json:"state_changed"`
	Returns       []json.RawMessage `json:"returns,omitempty"`
	Buckets       []Bucket          `json:"buckets,omitempty"`
	RejectReason  string            `json:"reject_reason,omitempty"`
	FinalFee      uint64            `json:"final_fee"`
}

type SubmitOptions struct {
	FeeBudget   uint64
	DryRun      bool
	DumpBuckets bool
	FeeAccount  string
}

func DefaultSubmitOptions() SubmitOptions {
	return SubmitOptions{FeeBudget: 1000, FeeAccount: "TestAccount_0"}
}

// SubmitRequest is the unit sent to the daemon.
type SubmitRequest struct {
	Instructions   []Instruction         `json:"instructions"`
	RequiredInputs []SubstateRequirement `json:"required_inputs"`
	FeeBudget      uint64                `json:"fee_budget"`
	DryRun         bool                  `json:"dry_run"`
	DumpOutputs    bool                  `json:"dump_outputs"`
	FeeAccount     string                `json:"fee_account,omitempty"`
}

func NewSubmitRequest(tx Transaction, opts SubmitOptions) SubmitRequest {
	inputs := tx.RequiredInputs
	if inputs == nil {
		inputs = []SubstateRequirement{}
	}
	return SubmitRequest{
		Instructions:   tx.Instructions,
		RequiredInputs: inputs,
		FeeBudget:      opts.FeeBudget,
		DryRun:         opts.DryRun,
		DumpOutputs:    opts.DumpBuckets,
		FeeAccount:     opts.FeeAccount,
	}
}

// Daemon is the remote execution endpoint a transaction is submitted to.
type Daemon interface {
	Submit(ctx context.Context, req SubmitRequest, observe StateFunc) (Outcome, error)
	SubmitInstruction(ctx context.Context, instruction Instruction, opts SubmitOptions, observe StateFunc) (Outcome, error)
}

// Submission is the persisted record of one submission attempt.
type Submission struct {
	SubmissionID string          `json:"submission_id"`
	Command      string          `json:"command"`
	State        SubmissionState `json:"state"`
	DryRun       bool            `json:"dry_run"`
	DumpBuckets  bool            `json:"dump_buckets"`
	FeeBudget    uint64          `json:"fee_budget"`
	FeeAccount   string          `json:"fee_account,omitempty"`
	CreatedAt    string          `json:"created_at"`
	UpdatedAt    string          `json:"updated_at"`
	Transaction  Transaction     `json:"transaction"`
	Outcome      *Outcome        `json:"outcome,omitempty"`
	Error        string          `json:"error,omitempty"`
}

func NewSubmissionID() string {
	return "sub_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func NewSubmission(submissionID string, tx Transaction, opts SubmitOptions) Submission {
	now := time.Now().UTC().Format(time.RFC3339)
	return Submission{
		SubmissionID: submissionID,
		Command:      tx.Command,
		State:        StateIdle,
		DryRun:       opts.DryRun,
		DumpBuckets:  opts.DumpBuckets,
		FeeBudget:    opts.FeeBudget,
		FeeAccount:   opts.FeeAccount,
		CreatedAt:    now,
		UpdatedAt:    now,
		Transaction:  tx,
	}
}

func (s *Submission) Touch() {
	s.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
}
