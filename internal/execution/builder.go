package execution

import (
	"fmt"
	"sort"
	"strings"

	clierr "github.com/ggonzalez94/coinctl/internal/errors"
	"github.com/ggonzalez94/coinctl/internal/id"
)

// Builder accumulates an instruction sequence. It only appends; Build validates
// the whole sequence and derives its required inputs.
type Builder struct {
	command      string
	shape        Shape
	target       string
	instructions []Instruction
	extra        []SubstateRequirement
}

func NewBuilder(command string, shape Shape) *Builder {
	return &Builder{command: command, shape: shape}
}

func (b *Builder) CallFunction(template id.Address, function string, args ...Arg) {
	b.instructions = append(b.instructions, CallFunction(template, function, args...))
}

func (b *Builder) CallMethod(component id.Address, method string, args ...Arg) {
	b.instructions = append(b.instructions, CallMethod(component, method, args...))
}

func (b *Builder) PutOnWorkspace(key string) {
	b.instructions = append(b.instructions, PutLastInstructionOutputOnWorkspace(key))
}

func (b *Builder) CreateProof(account, resource id.Address) {
	b.instructions = append(b.instructions, CreateProof(account, resource))
}

func (b *Builder) DropAllProofs() {
	b.instructions = append(b.instructions, DropAllProofsInWorkspace())
}

// Target records the component the transaction is addressed to.
func (b *Builder) Target(addr id.Address) {
	b.target = addr.SubstateID()
}

// Require adds explicit required inputs on top of the derived ones.
func (b *Builder) Require(reqs ...SubstateRequirement) {
	b.extra = append(b.extra, reqs...)
}

func (b *Builder) Len() int {
	return len(b.instructions)
}

func (b *Builder) Build(mode InputsMode) (Transaction, error) {
	instructions := make([]Instruction, len(b.instructions))
	copy(instructions, b.instructions)
	if err := ValidateWorkspace(instructions); err != nil {
		return Transaction{}, err
	}
	inputs, err := requiredInputsFor(instructions, b.target, b.extra, mode)
	if err != nil {
		return Transaction{}, err
	}
	return Transaction{
		Command:        b.command,
		Shape:          b.shape,
		Target:         b.target,
		Instructions:   instructions,
		RequiredInputs: inputs,
	}, nil
}

type bindingRole int

const (
	roleValue bindingRole = iota
	roleProof
)

type binding struct {
	role     bindingRole
	boundAt  int
	consumed bool
}

// ValidateWorkspace checks workspace bindings and proof pairing over a whole sequence.
func ValidateWorkspace(instructions []Instruction) error {
	if len(instructions) == 0 {
		return clierr.New(clierr.CodeBuild, "transaction has no instructions")
	}
	bindings := map[string]*binding{}
	acquired := false
	openProofs := 0
	for i, ins := range instructions {
		switch ins.Kind {
		case InstructionCallFunction:
			if ins.TemplateAddress.IsZero() || strings.TrimSpace(ins.Function) == "" {
				return buildErr(i, "call_function requires a template address and function name")
			}
			if err := consumeArgs(i, ins.Args, bindings); err != nil {
				return err
			}
		case InstructionCallMethod:
			if ins.ComponentAddress.IsZero() || strings.TrimSpace(ins.Method) == "" {
				return buildErr(i, "call_method requires a component address and method name")
			}
			if err := consumeArgs(i, ins.Args, bindings); err != nil {
				return err
			}
		case InstructionPutOnWorkspace:
			key := strings.TrimSpace(ins.Key)
			if key == "" {
				return buildErr(i, "workspace key is empty")
			}
			if i == 0 || !instructions[i-1].producesOutput() {
				return buildErr(i, fmt.Sprintf("workspace key %q does not follow an instruction that produces output", key))
			}
			if prev, ok := bindings[key]; ok && !prev.consumed {
				return buildErr(i, fmt.Sprintf("workspace key %q is already bound by instruction %d and not yet consumed", key, prev.boundAt))
			}
			role := roleValue
			if instructions[i-1].Kind == InstructionCreateProof {
				role = roleProof
			}
			bindings[key] = &binding{role: role, boundAt: i}
		case InstructionCreateProof:
			if ins.Account.IsZero() || ins.Resource.IsZero() {
				return buildErr(i, "create_proof requires an account and a badge resource")
			}
			acquired = true
			openProofs++
		case InstructionDropAllProofs:
			if openProofs == 0 {
				return buildErr(i, "proofs released without a matching create_proof")
			}
			openProofs = 0
			for key, b := range bindings {
				if b.role == roleProof {
					delete(bindings, key)
				}
			}
		default:
			return buildErr(i, fmt.Sprintf("unknown instruction kind %q", ins.Kind))
		}
	}
	if openProofs > 0 {
		return clierr.New(clierr.CodeBuild, "proofs created but never released")
	}
	if acquired && instructions[len(instructions)-1].Kind != InstructionDropAllProofs {
		return clierr.New(clierr.CodeBuild, "sequence that acquires proofs must end by releasing them")
	}
	unconsumed := make([]string, 0)
	for key, b := range bindings {
		if b.role == roleValue && !b.consumed {
			unconsumed = append(unconsumed, key)
		}
	}
	if len(unconsumed) > 0 {
		sort.Strings(unconsumed)
		return clierr.New(clierr.CodeBuild, fmt.Sprintf("workspace values bound but never consumed: %s", strings.Join(unconsumed, ", ")))
	}
	return nil
}

func consumeArgs(index int, args []Arg, bindings map[string]*binding) error {
	for _, arg := range args {
		if !arg.IsWorkspace() {
			continue
		}
		b, ok := bindings[arg.Workspace]
		if !ok {
			return buildErr(index, fmt.Sprintf("workspace key %q is referenced before it is bound", arg.Workspace))
		}
		if b.role == roleProof {
			continue
		}
		if b.consumed {
			return buildErr(index, fmt.Sprintf("workspace key %q is consumed more than once", arg.Workspace))
		}
		b.consumed = true
	}
	return nil
}

func buildErr(index int, msg string) error {
	return clierr.New(clierr.CodeBuild, fmt.Sprintf("instruction %d: %s", index, msg))
}
