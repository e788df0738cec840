package execution

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ggonzalez94/coinctl/internal/id"
)

type InstructionKind string

const (
	InstructionCallFunction   InstructionKind = "CallFunction"
	InstructionCallMethod     InstructionKind = "CallMethod"
	InstructionPutOnWorkspace InstructionKind = "PutLastInstructionOutputOnWorkspace"
	InstructionCreateProof    InstructionKind = "CreateProof"
	InstructionDropAllProofs  InstructionKind = "DropAllProofsInWorkspace"
)

// Arg is either a literal value or a reference to a workspace key.
type Arg struct {
	Literal   *id.Value
	Workspace string
}

func Literal(v id.Value) Arg {
	return Arg{Literal: &v}
}

func Workspace(key string) Arg {
	return Arg{Workspace: key}
}

func (a Arg) IsWorkspace() bool {
	return a.Literal == nil
}

func (a Arg) MarshalJSON() ([]byte, error) {
	if a.Literal != nil {
		return json.Marshal(map[string]id.Value{"Literal": *a.Literal})
	}
	return json.Marshal(map[string]string{"Workspace": a.Workspace})
}

func (a *Arg) UnmarshalJSON(data []byte) error {
	var raw struct {
		Literal   *id.Value `json:"Literal"`
		Workspace *string   `json:"Workspace"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.Literal != nil && raw.Workspace == nil:
		*a = Arg{Literal: raw.Literal}
	case raw.Workspace != nil && raw.Literal == nil:
		*a = Arg{Workspace: *raw.Workspace}
	default:
		return fmt.Errorf("arg must be exactly one of Literal or Workspace: %s", string(data))
	}
	return nil
}

// Instruction is one step of a transaction. Only the fields of its Kind are set.
type Instruction struct {
	Kind             InstructionKind
	TemplateAddress  id.Address
	Function         string
	ComponentAddress id.Address
	Method           string
	Args             []Arg
	Key              string
	Account          id.Address
	Resource         id.Address
}

func CallFunction(template id.Address, function string, args ...Arg) Instruction {
	return Instruction{Kind: InstructionCallFunction, TemplateAddress: template, Function: function, Args: cloneArgs(args)}
}

func CallMethod(component id.Address, method string, args ...Arg) Instruction {
	return Instruction{Kind: InstructionCallMethod, ComponentAddress: component, Method: method, Args: cloneArgs(args)}
}

func PutLastInstructionOutputOnWorkspace(key string) Instruction {
	return Instruction{Kind: InstructionPutOnWorkspace, Key: key}
}

func CreateProof(account, resource id.Address) Instruction {
	return Instruction{Kind: InstructionCreateProof, Account: account, Resource: resource}
}

func DropAllProofsInWorkspace() Instruction {
	return Instruction{Kind: InstructionDropAllProofs}
}

// producesOutput reports whether a following Put has a value to capture.
func (i Instruction) producesOutput() bool {
	switch i.Kind {
	case InstructionCallFunction, InstructionCallMethod, InstructionCreateProof:
		return true
	default:
		return false
	}
}

type callFunctionPayload struct {
	TemplateAddress id.Address `json:"template_address"`
	Function        string     `json:"function"`
	Args            []Arg      `json:"args"`
}

type callMethodPayload struct {
	ComponentAddress id.Address `json:"component_address"`
	Method           string     `json:"method"`
	Args             []Arg      `json:"args"`
}

type putPayload struct {
	Key string `json:"key"`
}

type createProofPayload struct {
	Account         id.Address `json:"account"`
	ResourceAddress id.Address `json:"resource_address"`
}

func (i Instruction) MarshalJSON() ([]byte, error) {
	var payload any
	switch i.Kind {
	case InstructionCallFunction:
		payload = callFunctionPayload{TemplateAddress: i.TemplateAddress, Function: i.Function, Args: nonNilArgs(i.Args)}
	case InstructionCallMethod:
		payload = callMethodPayload{ComponentAddress: i.ComponentAddress, Method: i.Method, Args: nonNilArgs(i.Args)}
	case InstructionPutOnWorkspace:
		payload = putPayload{Key: i.Key}
	case InstructionCreateProof:
		payload = createProofPayload{Account: i.Account, ResourceAddress: i.Resource}
	case InstructionDropAllProofs:
		return json.Marshal(string(i.Kind))
	default:
		return nil, fmt.Errorf("unknown instruction kind %q", i.Kind)
	}
	return json.Marshal(map[string]any{string(i.Kind): payload})
}

func (i *Instruction) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var name string
		if err := json.Unmarshal(trimmed, &name); err != nil {
			return err
		}
		if InstructionKind(name) != InstructionDropAllProofs {
			return fmt.Errorf("unknown unit instruction %q", name)
		}
		*i = DropAllProofsInWorkspace()
		return nil
	}
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &tagged); err != nil {
		return err
	}
	if len(tagged) != 1 {
		return fmt.Errorf("instruction must have exactly one variant, got %d", len(tagged))
	}
	for kind, body := range tagged {
		switch InstructionKind(kind) {
		case InstructionCallFunction:
			var p callFunctionPayload
			if err := json.Unmarshal(body, &p); err != nil {
				return err
			}
			*i = CallFunction(p.TemplateAddress, p.Function, p.Args...)
		case InstructionCallMethod:
			var p callMethodPayload
			if err := json.Unmarshal(body, &p); err != nil {
				return err
			}
			*i = CallMethod(p.ComponentAddress, p.Method, p.Args...)
		case InstructionPutOnWorkspace:
			var p putPayload
			if err := json.Unmarshal(body, &p); err != nil {
				return err
			}
			*i = PutLastInstructionOutputOnWorkspace(p.Key)
		case InstructionCreateProof:
			var p createProofPayload
			if err := json.Unmarshal(body, &p); err != nil {
				return err
			}
			*i = CreateProof(p.Account, p.ResourceAddress)
		default:
			return fmt.Errorf("unknown instruction kind %q", kind)
		}
	}
	return nil
}

func cloneArgs(args []Arg) []Arg {
	if len(args) == 0 {
		return nil
	}
	out := make([]Arg, len(args))
	copy(out, args)
	return out
}

func nonNilArgs(args []Arg) []Arg {
	if args == nil {
		return []Arg{}
	}
	return args
}
