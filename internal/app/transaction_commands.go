package app

import (
	"context"
	"strconv"
	"strings"

	clierr "github.com/ggonzalez94/coinctl/internal/errors"
	"github.com/ggonzalez94/coinctl/internal/execution"
	"github.com/ggonzalez94/coinctl/internal/execution/actionbuilder"
	"github.com/ggonzalez94/coinctl/internal/model"
	"github.com/ggonzalez94/coinctl/internal/policy"
	"github.com/ggonzalez94/coinctl/internal/schema"
	"github.com/spf13/cobra"
)

const dryRunWarning = "dry run: the daemon simulated the transaction and no ledger state changed"

func (s *runtimeState) newLoginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authenticate with the wallet daemon and store the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), s.settings.Timeout)
			defer cancel()
			token, err := s.daemon.Login(ctx)
			if err != nil {
				return err
			}
			if err := s.credentials.Save(token); err != nil {
				return clierr.Wrap(clierr.CodeInternal, "persist daemon token", err)
			}
			s.logger.Debug("login succeeded", "endpoint", s.daemon.Endpoint(), "credentials", s.credentials.Path())
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), model.LoginResult{
				Endpoint:        s.daemon.Endpoint(),
				CredentialsPath: s.credentials.Path(),
				Persisted:       true,
			}, nil)
		},
	}
}

type buildView struct {
	Command    string                  `json:"command"`
	Shape      execution.Shape         `json:"shape"`
	SingleCall bool                    `json:"single_call"`
	Request    execution.SubmitRequest `json:"request"`
}

func (s *runtimeState) newTransactionCommand(spec actionbuilder.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   spec.Use(),
		Short: spec.Short,
		Args:  cobra.ArbitraryArgs,
		Annotations: map[string]string{
			schema.AnnotationArgs:    strings.Join(spec.Args, " "),
			schema.AnnotationShape:   string(spec.Shape),
			schema.AnnotationMutates: strconv.FormatBool(spec.Mutates),
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.runTransaction(trimRootPath(cmd.CommandPath()), spec, args)
		},
	}
	f := cmd.Flags()
	f.StringVar(&s.flags.Template, "template", "", "Template address used by instantiate")
	f.Int64VarP(&s.flags.MaxFee, "max-fee", "f", -1, "Fee budget for the transaction")
	f.BoolVar(&s.flags.DryRun, "dry-run", false, "Simulate without changing ledger state")
	f.BoolVarP(&s.flags.DumpBuckets, "dump-buckets", "d", false, "Report intermediate buckets")
	f.StringVarP(&s.flags.DefaultAccount, "default-account", "a", "", "Account paying the fee")
	f.StringVar(&s.flags.Account, "account", "", "Caller account component")
	f.StringVar(&s.flags.AdminBadge, "admin-badge", "", "Admin badge resource")
	f.StringVar(&s.flags.UserBadge, "user-badge", "", "User badge resource")
	f.StringVar(&s.flags.Resource, "resource", "", "Default resource for commands that move coins")
	f.StringVar(&s.flags.InputsMode, "inputs-mode", "", "Required inputs derivation: full or compat")
	f.StringArrayVar(&s.flags.Inputs, "input", nil, "Extra required input <substate_id[:version]> (repeatable)")
	f.BoolVar(&s.flags.BuildOnly, "build-only", false, "Print the request without contacting the daemon")
	f.BoolVar(&s.flags.NoHistory, "no-history", false, "Do not record the submission locally")
	return cmd
}

func (s *runtimeState) runTransaction(commandPath string, spec actionbuilder.Command, args []string) error {
	settings := s.settings
	tx, _, err := s.registry.Build(actionbuilder.Request{
		Command:    spec.Name,
		Args:       args,
		Template:   settings.Template,
		Account:    settings.Account,
		AdminBadge: settings.AdminBadge,
		UserBadge:  settings.UserBadge,
		Resource:   settings.Resource,
		InputsMode: settings.InputsMode,
		Inputs:     settings.ExtraInputs,
	})
	if err != nil {
		return err
	}
	opts := execution.SubmitOptions{
		FeeBudget:   settings.MaxFee,
		DryRun:      settings.DryRun,
		DumpBuckets: settings.DumpBuckets,
		FeeAccount:  settings.DefaultAccount,
	}

	if s.flags.BuildOnly {
		return s.emitSuccess(commandPath, buildView{
			Command:    tx.Command,
			Shape:      tx.Shape,
			SingleCall: spec.SingleCall,
			Request:    execution.NewSubmitRequest(tx, opts),
		}, nil)
	}

	if err := policy.CheckReadOnly(settings.ReadOnly, commandPath, spec.Mutates, settings.DryRun); err != nil {
		return err
	}
	if err := s.authenticate(); err != nil {
		return err
	}

	sub := execution.NewSubmission(execution.NewSubmissionID(), tx, opts)
	s.lastSubmissionID = sub.SubmissionID
	var store *execution.Store
	if settings.HistoryEnabled {
		if err := s.ensureHistory(); err != nil {
			return err
		}
		store = s.history
	}

	ctx, cancel := context.WithTimeout(context.Background(), settings.Timeout)
	defer cancel()
	err = execution.ExecuteSubmission(ctx, store, s.daemon, &sub, execution.ExecuteOptions{
		SingleCall: spec.SingleCall,
		Logger:     s.logger,
	})
	var warnings []string
	if sub.DryRun {
		warnings = append(warnings, dryRunWarning)
	}
	if err != nil {
		s.lastWarnings = warnings
		return err
	}
	return s.emitSuccess(commandPath, submissionResult(sub), warnings)
}

// authenticate installs the session token: flag or env first, then the credentials file.
func (s *runtimeState) authenticate() error {
	token := strings.TrimSpace(s.settings.Token)
	if token == "" {
		stored, err := s.credentials.Load()
		if err != nil {
			return clierr.Wrap(clierr.CodeAuth, "load daemon token", err)
		}
		token = stored
	}
	if token == "" {
		return clierr.New(clierr.CodeAuth, "no daemon token: run login, pass --token or set COINCTL_TOKEN")
	}
	s.daemon.SetToken(token)
	return nil
}

func submissionResult(sub execution.Submission) model.SubmissionResult {
	res := model.SubmissionResult{
		SubmissionID: sub.SubmissionID,
		Command:      sub.Command,
		State:        string(sub.State),
		DryRun:       sub.DryRun,
	}
	if sub.Outcome == nil {
		return res
	}
	o := sub.Outcome
	res.TransactionID = o.TransactionID
	res.Status = string(o.Status)
	res.DryRun = o.DryRun
	res.StateChanged = o.StateChanged
	res.FinalFee = o.FinalFee
	res.Returns = o.Returns
	for _, b := range o.Buckets {
		res.Buckets = append(res.Buckets, model.BucketView{
			BucketID:        b.BucketID,
			ResourceAddress: b.ResourceAddress,
			Amount:          b.Amount,
		})
	}
	return res
}
