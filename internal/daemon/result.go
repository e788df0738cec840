package daemon

import (
	"encoding/json"
	"fmt"
	"strings"

	clierr "github.com/ggonzalez94/coinctl/internal/errors"
	"github.com/ggonzalez94/coinctl/internal/execution"
)

type submitResult struct {
	TransactionID string          `json:"transaction_id"`
	Result        *finalizeResult `json:"result"`
}

type waitResult struct {
	TransactionID string          `json:"transaction_id"`
	Result        *finalizeResult `json:"result"`
	FinalFee      uint64          `json:"final_fee"`
	TimedOut      bool            `json:"timed_out"`
}

// finalizeResult is the daemon's terminal decision. Exactly one of Accept and
// Reject is set.
type finalizeResult struct {
	Decision struct {
		Accept json.RawMessage `json:"Accept"`
		Reject json.RawMessage `json:"Reject"`
	} `json:"result"`
	Returns  []json.RawMessage  `json:"execution_results"`
	Buckets  []execution.Bucket `json:"buckets"`
	FinalFee uint64             `json:"final_fee"`
}

func decodeFinalize(txID string, fr *finalizeResult, dump bool) (execution.Outcome, error) {
	accepted := present(fr.Decision.Accept)
	rejected := present(fr.Decision.Reject)
	if accepted == rejected {
		return execution.Outcome{}, clierr.New(clierr.CodeDecode, fmt.Sprintf("result for transaction %s must carry exactly one of Accept or Reject", txID))
	}
	outcome := execution.Outcome{
		TransactionID: txID,
		FinalFee:      fr.FinalFee,
		Returns:       fr.Returns,
	}
	if dump {
		outcome.Buckets = fr.Buckets
	}
	if rejected {
		reason, err := rejectReason(fr.Decision.Reject)
		if err != nil {
			return execution.Outcome{}, clierr.Wrap(clierr.CodeDecode, fmt.Sprintf("decode reject reason for transaction %s", txID), err)
		}
		outcome.Status = execution.OutcomeRejected
		outcome.RejectReason = reason
		return outcome, nil
	}
	outcome.Status = execution.OutcomeCommitted
	return outcome, nil
}

func present(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed != "" && trimmed != "null"
}

// rejectReason accepts a bare string, a single-variant object such as
// {"ExecutionFailure":"..."}, or an object with a message field.
func rejectReason(raw json.RawMessage) (string, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", err
	}
	for _, field := range []string{"message", "reason"} {
		if v, ok := obj[field]; ok {
			if err := json.Unmarshal(v, &text); err == nil {
				return text, nil
			}
		}
	}
	if len(obj) == 1 {
		for kind, v := range obj {
			if err := json.Unmarshal(v, &text); err == nil {
				return kind + ": " + text, nil
			}
			return kind, nil
		}
	}
	return string(raw), nil
}
