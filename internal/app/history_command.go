package app

import (
	"strings"

	clierr "github.com/ggonzalez94/coinctl/internal/errors"
	"github.com/ggonzalez94/coinctl/internal/execution"
	"github.com/ggonzalez94/coinctl/internal/model"
	"github.com/spf13/cobra"
)

func (s *runtimeState) newHistoryCommand() *cobra.Command {
	root := &cobra.Command{Use: "history", Short: "Inspect locally recorded submissions"}

	var (
		state string
		limit int
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent submissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if state != "" && !knownState(state) {
				return clierr.New(clierr.CodeUsage, "unknown submission state "+state)
			}
			if err := s.ensureHistory(); err != nil {
				return err
			}
			subs, err := s.history.List(state, limit)
			if err != nil {
				return clierr.Wrap(clierr.CodeInternal, "list submissions", err)
			}
			items := make([]model.SubmissionSummary, 0, len(subs))
			for _, sub := range subs {
				items = append(items, summarize(sub))
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), items, nil)
		},
	}
	listCmd.Flags().StringVar(&state, "state", "", "Filter by submission state")
	listCmd.Flags().IntVar(&limit, "limit", 20, "Maximum submissions to return")

	showCmd := &cobra.Command{
		Use:   "show <submission-id>",
		Short: "Show one submission with its transaction and outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.ensureHistory(); err != nil {
				return err
			}
			sub, err := s.history.Get(strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			s.lastSubmissionID = sub.SubmissionID
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), sub, nil)
		},
	}

	root.AddCommand(listCmd)
	root.AddCommand(showCmd)
	return root
}

func (s *runtimeState) ensureHistory() error {
	if s.history != nil {
		return nil
	}
	if !s.settings.HistoryEnabled {
		return clierr.New(clierr.CodeUsage, "submission history is disabled")
	}
	store, err := execution.OpenStore(s.settings.HistoryPath, s.settings.HistoryLockPath)
	if err != nil {
		return clierr.Wrap(clierr.CodeInternal, "open submission history", err)
	}
	s.history = store
	return nil
}

func (s *runtimeState) closeHistory() {
	if s.history != nil {
		_ = s.history.Close()
		s.history = nil
	}
}

func summarize(sub execution.Submission) model.SubmissionSummary {
	item := model.SubmissionSummary{
		SubmissionID: sub.SubmissionID,
		Command:      sub.Command,
		State:        string(sub.State),
		DryRun:       sub.DryRun,
		UpdatedAt:    sub.UpdatedAt,
		Error:        sub.Error,
	}
	if sub.Outcome != nil {
		item.TransactionID = sub.Outcome.TransactionID
	}
	return item
}

func knownState(state string) bool {
	switch execution.SubmissionState(state) {
	case execution.StateIdle, execution.StateAwaitingConnection, execution.StateAwaitingResult,
		execution.StateCommitted, execution.StateRejected, execution.StateTransportFailed,
		execution.StateAuthFailed, execution.StateDecodeFailed, execution.StateTimedOut:
		return true
	}
	return false
}
