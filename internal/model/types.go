package model

import (
	"encoding/json"
	"time"
)

const EnvelopeVersion = "v1"

type Envelope struct {
	Version  string       `json:"version"`
	Success  bool         `json:"success"`
	Data     any          `json:"data,omitempty"`
	Error    *ErrorBody   `json:"error"`
	Warnings []string     `json:"warnings,omitempty"`
	Meta     EnvelopeMeta `json:"meta"`
}

type ErrorBody struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

type EnvelopeMeta struct {
	RequestID    string     `json:"request_id"`
	Timestamp    time.Time  `json:"timestamp"`
	Command      string     `json:"command"`
	Endpoint     string     `json:"endpoint,omitempty"`
	SubmissionID string     `json:"submission_id,omitempty"`
	Daemon       *CallStats `json:"daemon,omitempty"`
}

// CallStats summarizes the JSON-RPC traffic of one command.
type CallStats struct {
	Calls     int64 `json:"calls"`
	LatencyMS int64 `json:"latency_ms"`
}

type LoginResult struct {
	Endpoint        string `json:"endpoint"`
	CredentialsPath string `json:"credentials_path"`
	Persisted       bool   `json:"persisted"`
}

type CommandInfo struct {
	Name       string   `json:"name"`
	Args       []string `json:"args"`
	Shape      string   `json:"shape"`
	Mutates    bool     `json:"mutates"`
	SingleCall bool     `json:"single_call"`
	Short      string   `json:"short"`
}

// SubmissionResult is the rendered outcome of one transaction command.
type SubmissionResult struct {
	SubmissionID  string            `json:"submission_id,omitempty"`
	Command       string            `json:"command"`
	State         string            `json:"state"`
	TransactionID string            `json:"transaction_id"`
	Status        string            `json:"status"`
	DryRun        bool              `json:"dry_run"`
	StateChanged  bool              `json:"state_changed"`
	FinalFee      uint64            `json:"final_fee"`
	Returns       []json.RawMessage `json:"returns,omitempty"`
	Buckets       []BucketView      `json:"buckets,omitempty"`
}

type BucketView struct {
	BucketID        uint32 `json:"bucket_id"`
	ResourceAddress string `json:"resource_address"`
	Amount          int64  `json:"amount"`
}

// SubmissionSummary is one row of the submission history.
type SubmissionSummary struct {
	SubmissionID  string `json:"submission_id"`
	Command       string `json:"command"`
	State         string `json:"state"`
	DryRun        bool   `json:"dry_run"`
	TransactionID string `json:"transaction_id,omitempty"`
	UpdatedAt     string `json:"updated_at"`
	Error         string `json:"error,omitempty"`
}
