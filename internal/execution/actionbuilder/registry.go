package actionbuilder

import (
	"fmt"
	"sort"
	"strings"

	clierr "github.com/ggonzalez94/coinctl/internal/errors"
	"github.com/ggonzalez94/coinctl/internal/execution"
	"github.com/ggonzalez94/coinctl/internal/execution/planner"
)

type PlanFunc func(planner.Params) (execution.Transaction, error)

// Command describes one transaction-building subcommand.
type Command struct {
	Name  string
	Args  []string
	Short string
	// SingleCall commands go through the one-instruction submission path.
	SingleCall bool
	// Mutates is false for pure queries; read-only mode blocks the rest.
	Mutates bool
	Shape   execution.Shape
	Plan    PlanFunc
}

func (c Command) Use() string {
	parts := []string{c.Name}
	for _, a := range c.Args {
		parts = append(parts, "<"+a+">")
	}
	return strings.Join(parts, " ")
}

type Request struct {
	Command    string
	Args       []string
	Template   string
	Account    string
	AdminBadge string
	UserBadge  string
	// Resource fills an omitted trailing-position "resource" argument.
	Resource   string
	InputsMode string
	Inputs     []string
}

type Registry struct {
	commands map[string]Command
}

func New(commands ...Command) *Registry {
	r := &Registry{commands: map[string]Command{}}
	for _, c := range commands {
		r.commands[c.Name] = c
	}
	return r
}

// Default returns the registry of every supported command.
func Default() *Registry {
	return New(
		Command{Name: "instantiate", Args: []string{"initial-supply", "symbol", "metadata"}, Short: "Instantiate a new coin component from the template", SingleCall: true, Mutates: true, Shape: execution.ShapeSingleCall, Plan: planner.PlanInstantiate},
		Command{Name: "increase-supply", Args: []string{"component", "amount"}, Short: "Mint additional supply (admin badge)", Mutates: true, Shape: execution.ShapeAuthorizedInvoke, Plan: planner.PlanIncreaseSupply},
		Command{Name: "decrease-supply", Args: []string{"component", "amount"}, Short: "Burn supply", Mutates: true, Shape: execution.ShapeSimpleInvoke, Plan: planner.PlanDecreaseSupply},
		Command{Name: "total-supply", Args: []string{"component"}, Short: "Query total supply", Shape: execution.ShapeSimpleInvoke, Plan: planner.PlanTotalSupply},
		Command{Name: "withdraw", Args: []string{"component", "amount"}, Short: "Withdraw coins into the caller account (user badge)", Mutates: true, Shape: execution.ShapeAuthorizedTransfer, Plan: planner.PlanWithdraw},
		Command{Name: "deposit", Args: []string{"component", "amount", "resource", "source"}, Short: "Move a bucket from a source component into the coin component", Mutates: true, Shape: execution.ShapeTwoHopTransfer, Plan: planner.PlanDeposit},
		Command{Name: "send", Args: []string{"component", "destination", "amount"}, Short: "Send coins to another account (user badge)", Mutates: true, Shape: execution.ShapeAuthorizedTransfer, Plan: planner.PlanSend},
		Command{Name: "create-new-admin", Args: []string{"component"}, Short: "Mint a new admin badge", Mutates: true, Shape: execution.ShapeSimpleInvoke, Plan: planner.PlanCreateNewAdmin},
		Command{Name: "create-new-user", Args: []string{"component", "user-id"}, Short: "Create a user badge and deposit it into the caller account (admin badge)", Mutates: true, Shape: execution.ShapeAuthorizedTransfer, Plan: planner.PlanCreateNewUser},
		Command{Name: "remove-from-blacklist", Args: []string{"component", "user-id"}, Short: "Remove a user from the blacklist", Mutates: true, Shape: execution.ShapeSimpleInvoke, Plan: planner.PlanRemoveFromBlacklist},
		Command{Name: "get-user-data", Args: []string{"component", "user-id"}, Short: "Read a user record", Shape: execution.ShapeSimpleInvoke, Plan: planner.PlanGetUserData},
		Command{Name: "set-user-data", Args: []string{"component", "user-id", "data"}, Short: "Write a user record", Mutates: true, Shape: execution.ShapeSimpleInvoke, Plan: planner.PlanSetUserData},
	)
}

func (r *Registry) Lookup(name string) (Command, bool) {
	c, ok := r.commands[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build decodes req and plans its transaction. Nothing is sent.
func (r *Registry) Build(req Request) (execution.Transaction, Command, error) {
	cmd, ok := r.Lookup(req.Command)
	if !ok {
		return execution.Transaction{}, Command{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("unsupported command %q", req.Command))
	}
	args := withDefaultResource(cmd, req.Args, req.Resource)
	if len(args) != len(cmd.Args) {
		return execution.Transaction{}, cmd, clierr.New(clierr.CodeUsage, fmt.Sprintf("usage: %s", cmd.Use()))
	}
	mode, err := execution.ParseInputsMode(req.InputsMode)
	if err != nil {
		return execution.Transaction{}, cmd, err
	}
	extra := make([]execution.SubstateRequirement, 0, len(req.Inputs))
	for _, raw := range req.Inputs {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		parsed, err := execution.ParseSubstateRequirement(raw)
		if err != nil {
			return execution.Transaction{}, cmd, err
		}
		extra = append(extra, parsed)
	}
	tx, err := cmd.Plan(planner.Params{
		Command:    cmd.Name,
		Args:       args,
		Template:   req.Template,
		Account:    req.Account,
		AdminBadge: req.AdminBadge,
		UserBadge:  req.UserBadge,
		Mode:       mode,
		Extra:      extra,
	})
	if err != nil {
		return execution.Transaction{}, cmd, err
	}
	return tx, cmd, nil
}

func withDefaultResource(cmd Command, args []string, resource string) []string {
	if len(args) != len(cmd.Args)-1 || strings.TrimSpace(resource) == "" {
		return args
	}
	idx := -1
	for i, name := range cmd.Args {
		if name == "resource" {
			idx = i
		}
	}
	if idx < 0 || idx > len(args) {
		return args
	}
	out := make([]string, 0, len(cmd.Args))
	out = append(out, args[:idx]...)
	out = append(out, resource)
	return append(out, args[idx:]...)
}
