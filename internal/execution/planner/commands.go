package planner

import (
	"fmt"
	"strings"

	clierr "github.com/ggonzalez94/coinctl/internal/errors"
	"github.com/ggonzalez94/coinctl/internal/execution"
	"github.com/ggonzalez94/coinctl/internal/id"
)

// Params are the raw command inputs a command planner decodes.
type Params struct {
	Command    string
	Args       []string
	Template   string
	Account    string
	AdminBadge string
	UserBadge  string
	Mode       execution.InputsMode
	Extra      []execution.SubstateRequirement
}

func (p Params) options() Options {
	return Options{Command: p.Command, Mode: p.Mode, Extra: p.Extra}
}

func (p Params) arg(i int, name string) (string, error) {
	if i >= len(p.Args) || strings.TrimSpace(p.Args[i]) == "" {
		return "", clierr.New(clierr.CodeUsage, fmt.Sprintf("%s requires <%s>", p.Command, name))
	}
	return p.Args[i], nil
}

func (p Params) component(i int) (id.Address, error) {
	raw, err := p.arg(i, "component")
	if err != nil {
		return id.Address{}, err
	}
	return id.ParseComponent(raw)
}

func (p Params) account() (id.Address, error) {
	if strings.TrimSpace(p.Account) == "" {
		return id.Address{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("%s requires --account", p.Command))
	}
	return id.ParseComponent(p.Account)
}

func (p Params) badge(raw, flag string) (id.Address, error) {
	if strings.TrimSpace(raw) == "" {
		return id.Address{}, clierr.New(clierr.CodeUsage, fmt.Sprintf("%s requires %s", p.Command, flag))
	}
	return id.ParseResource(raw)
}

// PlanInstantiate creates a new component from the configured template.
func PlanInstantiate(p Params) (execution.Transaction, error) {
	template, err := id.ParseTemplate(p.Template)
	if err != nil {
		return execution.Transaction{}, err
	}
	rawSupply, err := p.arg(0, "initial-supply")
	if err != nil {
		return execution.Transaction{}, err
	}
	supply, err := id.ParseAmount("initial supply", rawSupply)
	if err != nil {
		return execution.Transaction{}, err
	}
	args := []execution.Arg{execution.Literal(id.Amount(supply))}
	for i, name := range []string{"symbol", "metadata"} {
		raw, err := p.arg(i+1, name)
		if err != nil {
			return execution.Transaction{}, err
		}
		v, err := id.ParseArg(raw)
		if err != nil {
			return execution.Transaction{}, err
		}
		args = append(args, execution.Literal(v))
	}
	return BuildFunctionInvoke(FunctionInvokeRequest{
		Options:  p.options(),
		Template: template,
		Function: "instantiate",
		Args:     args,
	})
}

func PlanIncreaseSupply(p Params) (execution.Transaction, error) {
	coin, err := p.component(0)
	if err != nil {
		return execution.Transaction{}, err
	}
	amount, err := p.amount(1)
	if err != nil {
		return execution.Transaction{}, err
	}
	account, err := p.account()
	if err != nil {
		return execution.Transaction{}, err
	}
	badge, err := p.badge(p.AdminBadge, "--admin-badge")
	if err != nil {
		return execution.Transaction{}, err
	}
	return BuildAuthorizedInvoke(AuthorizedInvokeRequest{
		Options:   p.options(),
		Account:   account,
		Badge:     badge,
		Component: coin,
		Method:    "increase_supply",
		Args:      []execution.Arg{execution.Literal(id.Amount(amount))},
	})
}

func PlanDecreaseSupply(p Params) (execution.Transaction, error) {
	coin, err := p.component(0)
	if err != nil {
		return execution.Transaction{}, err
	}
	amount, err := p.amount(1)
	if err != nil {
		return execution.Transaction{}, err
	}
	return BuildSimpleInvoke(SimpleInvokeRequest{
		Options:   p.options(),
		Component: coin,
		Method:    "decrease_supply",
		Args:      []execution.Arg{execution.Literal(id.Amount(amount))},
	})
}

func PlanTotalSupply(p Params) (execution.Transaction, error) {
	return p.simpleNoArgs("total_supply")
}

func PlanCreateNewAdmin(p Params) (execution.Transaction, error) {
	return p.simpleNoArgs("create_new_admin")
}

// PlanWithdraw moves amount out of the coin component into the caller's account.
func PlanWithdraw(p Params) (execution.Transaction, error) {
	coin, err := p.component(0)
	if err != nil {
		return execution.Transaction{}, err
	}
	amount, err := p.u64(1, "amount")
	if err != nil {
		return execution.Transaction{}, err
	}
	account, err := p.account()
	if err != nil {
		return execution.Transaction{}, err
	}
	badge, err := p.badge(p.UserBadge, "--user-badge")
	if err != nil {
		return execution.Transaction{}, err
	}
	return BuildAuthorizedTransferOut(AuthorizedTransferRequest{
		AuthorizedInvokeRequest: AuthorizedInvokeRequest{
			Options:   p.options(),
			Account:   account,
			Badge:     badge,
			Component: coin,
			Method:    MethodWithdraw,
			Args:      []execution.Arg{execution.Literal(id.U64(amount))},
		},
		Destination: account,
	})
}

// PlanSend withdraws from the coin component on the caller's behalf and
// deposits into another account.
func PlanSend(p Params) (execution.Transaction, error) {
	coin, err := p.component(0)
	if err != nil {
		return execution.Transaction{}, err
	}
	rawDest, err := p.arg(1, "destination")
	if err != nil {
		return execution.Transaction{}, err
	}
	destination, err := id.ParseComponent(rawDest)
	if err != nil {
		return execution.Transaction{}, err
	}
	amount, err := p.u64(2, "amount")
	if err != nil {
		return execution.Transaction{}, err
	}
	account, err := p.account()
	if err != nil {
		return execution.Transaction{}, err
	}
	badge, err := p.badge(p.UserBadge, "--user-badge")
	if err != nil {
		return execution.Transaction{}, err
	}
	return BuildAuthorizedTransferOut(AuthorizedTransferRequest{
		AuthorizedInvokeRequest: AuthorizedInvokeRequest{
			Options:   p.options(),
			Account:   account,
			Badge:     badge,
			Component: coin,
			Method:    MethodWithdraw,
			Args:      []execution.Arg{execution.Literal(id.U64(amount))},
		},
		Destination: destination,
	})
}

// PlanDeposit pulls a bucket out of a source component and deposits it into the coin component.
func PlanDeposit(p Params) (execution.Transaction, error) {
	coin, err := p.component(0)
	if err != nil {
		return execution.Transaction{}, err
	}
	amount, err := p.u64(1, "amount")
	if err != nil {
		return execution.Transaction{}, err
	}
	rawResource, err := p.arg(2, "resource")
	if err != nil {
		return execution.Transaction{}, err
	}
	resource, err := id.ParseResource(rawResource)
	if err != nil {
		return execution.Transaction{}, err
	}
	rawSource, err := p.arg(3, "source")
	if err != nil {
		return execution.Transaction{}, err
	}
	source, err := id.ParseComponent(rawSource)
	if err != nil {
		return execution.Transaction{}, err
	}
	return BuildTwoHopTransfer(TwoHopRequest{
		Options:     p.options(),
		Source:      source,
		Resource:    resource,
		Amount:      amount,
		Destination: coin,
	})
}

func PlanCreateNewUser(p Params) (execution.Transaction, error) {
	coin, err := p.component(0)
	if err != nil {
		return execution.Transaction{}, err
	}
	userID, err := p.u64(1, "user-id")
	if err != nil {
		return execution.Transaction{}, err
	}
	account, err := p.account()
	if err != nil {
		return execution.Transaction{}, err
	}
	badge, err := p.badge(p.AdminBadge, "--admin-badge")
	if err != nil {
		return execution.Transaction{}, err
	}
	return BuildAuthorizedTransferOut(AuthorizedTransferRequest{
		AuthorizedInvokeRequest: AuthorizedInvokeRequest{
			Options:   p.options(),
			Account:   account,
			Badge:     badge,
			Component: coin,
			Method:    "create_new_user",
			Args:      []execution.Arg{execution.Literal(id.U64(userID))},
		},
		Destination: account,
	})
}

func PlanRemoveFromBlacklist(p Params) (execution.Transaction, error) {
	return p.simpleUserCall("remove_from_blacklist")
}

func PlanGetUserData(p Params) (execution.Transaction, error) {
	return p.simpleUserCall("get_user_data")
}

func PlanSetUserData(p Params) (execution.Transaction, error) {
	coin, err := p.component(0)
	if err != nil {
		return execution.Transaction{}, err
	}
	userID, err := p.u64(1, "user-id")
	if err != nil {
		return execution.Transaction{}, err
	}
	rawData, err := p.arg(2, "data")
	if err != nil {
		return execution.Transaction{}, err
	}
	data, err := id.ParseArg(rawData)
	if err != nil {
		return execution.Transaction{}, err
	}
	return BuildSimpleInvoke(SimpleInvokeRequest{
		Options:   p.options(),
		Component: coin,
		Method:    "set_user_data",
		Args:      []execution.Arg{execution.Literal(id.U64(userID)), execution.Literal(data)},
	})
}

func (p Params) simpleNoArgs(method string) (execution.Transaction, error) {
	coin, err := p.component(0)
	if err != nil {
		return execution.Transaction{}, err
	}
	return BuildSimpleInvoke(SimpleInvokeRequest{Options: p.options(), Component: coin, Method: method})
}

func (p Params) simpleUserCall(method string) (execution.Transaction, error) {
	coin, err := p.component(0)
	if err != nil {
		return execution.Transaction{}, err
	}
	userID, err := p.u64(1, "user-id")
	if err != nil {
		return execution.Transaction{}, err
	}
	return BuildSimpleInvoke(SimpleInvokeRequest{
		Options:   p.options(),
		Component: coin,
		Method:    method,
		Args:      []execution.Arg{execution.Literal(id.U64(userID))},
	})
}

func (p Params) amount(i int) (int64, error) {
	raw, err := p.arg(i, "amount")
	if err != nil {
		return 0, err
	}
	return id.ParseAmount("amount", raw)
}

func (p Params) u64(i int, name string) (uint64, error) {
	raw, err := p.arg(i, name)
	if err != nil {
		return 0, err
	}
	return id.ParseUint64(name, raw)
}
