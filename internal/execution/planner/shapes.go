package planner

import (
	"github.com/ggonzalez94/coinctl/internal/execution"
	"github.com/ggonzalez94/coinctl/internal/id"
)

// Workspace keys, one per role.
const (
	KeyProof  = "proof"
	KeyBucket = "bucket"
)

const (
	MethodWithdraw = "withdraw"
	MethodDeposit  = "deposit"
)

// Options carries what every recipe needs besides its shape-specific fields.
type Options struct {
	Command string
	Mode    execution.InputsMode
	Extra   []execution.SubstateRequirement
}

type SimpleInvokeRequest struct {
	Options
	Component id.Address
	Method    string
	Args      []execution.Arg
}

// BuildSimpleInvoke builds a single method call.
func BuildSimpleInvoke(req SimpleInvokeRequest) (execution.Transaction, error) {
	b := execution.NewBuilder(req.Command, execution.ShapeSimpleInvoke)
	b.Target(req.Component)
	b.CallMethod(req.Component, req.Method, req.Args...)
	b.Require(req.Extra...)
	return b.Build(req.Mode)
}

type FunctionInvokeRequest struct {
	Options
	Template id.Address
	Function string
	Args     []execution.Arg
}

// BuildFunctionInvoke builds a single template function call, which has no target component.
func BuildFunctionInvoke(req FunctionInvokeRequest) (execution.Transaction, error) {
	b := execution.NewBuilder(req.Command, execution.ShapeSingleCall)
	b.CallFunction(req.Template, req.Function, req.Args...)
	b.Require(req.Extra...)
	return b.Build(req.Mode)
}

type AuthorizedInvokeRequest struct {
	Options
	Account   id.Address
	Badge     id.Address
	Component id.Address
	Method    string
	Args      []execution.Arg
}

// BuildAuthorizedInvoke wraps a method call in a proof of the caller's badge.
func BuildAuthorizedInvoke(req AuthorizedInvokeRequest) (execution.Transaction, error) {
	b := execution.NewBuilder(req.Command, execution.ShapeAuthorizedInvoke)
	b.Target(req.Component)
	b.CreateProof(req.Account, req.Badge)
	b.PutOnWorkspace(KeyProof)
	b.CallMethod(req.Component, req.Method, req.Args...)
	b.DropAllProofs()
	b.Require(req.Extra...)
	return b.Build(req.Mode)
}

type AuthorizedTransferRequest struct {
	AuthorizedInvokeRequest
	Destination id.Address
}

// BuildAuthorizedTransferOut is an authorized invoke whose returned bucket is
// deposited into Destination before the proofs are released.
func BuildAuthorizedTransferOut(req AuthorizedTransferRequest) (execution.Transaction, error) {
	b := execution.NewBuilder(req.Command, execution.ShapeAuthorizedTransfer)
	b.Target(req.Component)
	b.CreateProof(req.Account, req.Badge)
	b.PutOnWorkspace(KeyProof)
	b.CallMethod(req.Component, req.Method, req.Args...)
	b.PutOnWorkspace(KeyBucket)
	b.CallMethod(req.Destination, MethodDeposit, execution.Workspace(KeyBucket))
	b.DropAllProofs()
	b.Require(req.Extra...)
	return b.Build(req.Mode)
}

type TwoHopRequest struct {
	Options
	Source      id.Address
	Resource    id.Address
	Amount      uint64
	Destination id.Address
}

// BuildTwoHopTransfer withdraws Amount of Resource from Source and deposits
// the bucket into Destination. Source enforces its own access rules.
func BuildTwoHopTransfer(req TwoHopRequest) (execution.Transaction, error) {
	b := execution.NewBuilder(req.Command, execution.ShapeTwoHopTransfer)
	b.Target(req.Destination)
	b.CallMethod(req.Source, MethodWithdraw,
		execution.Literal(id.AddressValue(req.Resource)),
		execution.Literal(id.U64(req.Amount)),
	)
	b.PutOnWorkspace(KeyBucket)
	b.CallMethod(req.Destination, MethodDeposit, execution.Workspace(KeyBucket))
	b.Require(req.Extra...)
	return b.Build(req.Mode)
}
