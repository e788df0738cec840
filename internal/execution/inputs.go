package execution

import (
	"fmt"
	"strings"

	clierr "github.com/ggonzalez94/coinctl/internal/errors"
	"github.com/ggonzalez94/coinctl/internal/id"
)

type InputsMode string

const (
	// InputsFull declares every object the sequence is known to touch.
	InputsFull InputsMode = "full"
	// InputsCompat declares only the target component plus explicit extras.
	InputsCompat InputsMode = "compat"
)

func ParseInputsMode(input string) (InputsMode, error) {
	switch InputsMode(strings.ToLower(strings.TrimSpace(input))) {
	case "", InputsFull:
		return InputsFull, nil
	case InputsCompat:
		return InputsCompat, nil
	default:
		return "", clierr.New(clierr.CodeUsage, fmt.Sprintf("unsupported inputs mode %q (expected full or compat)", input))
	}
}

// DeriveRequiredInputs returns the objects touched by instructions: called
// components, proof accounts and badge resources, and vaults passed as
// arguments, followed by extra. Duplicates keep their first position.
// A proof declares the badge resource, not the NFT record the account holds;
// callers pin the record through extra.
func DeriveRequiredInputs(instructions []Instruction, extra []SubstateRequirement) []SubstateRequirement {
	set := newRequirementSet()
	for _, ins := range instructions {
		switch ins.Kind {
		case InstructionCallMethod:
			set.add(RequireAddress(ins.ComponentAddress))
		case InstructionCreateProof:
			set.add(RequireAddress(ins.Account))
			set.add(RequireAddress(ins.Resource))
		}
		for _, arg := range ins.Args {
			if arg.IsWorkspace() || arg.Literal.Type != id.TypeVault {
				continue
			}
			addr, ok := arg.Literal.AddressOf()
			if !ok {
				continue
			}
			set.add(RequireAddress(addr))
		}
	}
	for _, req := range extra {
		set.add(req)
	}
	return set.items
}

func requiredInputsFor(instructions []Instruction, target string, extra []SubstateRequirement, mode InputsMode) ([]SubstateRequirement, error) {
	switch mode {
	case "", InputsFull:
		derived := DeriveRequiredInputs(instructions, nil)
		set := newRequirementSet()
		if target != "" {
			set.add(Require(target))
		}
		for _, req := range derived {
			set.add(req)
		}
		for _, req := range extra {
			set.add(req)
		}
		return set.items, nil
	case InputsCompat:
		set := newRequirementSet()
		if target != "" {
			set.add(Require(target))
		}
		for _, req := range extra {
			set.add(req)
		}
		return set.items, nil
	default:
		return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("unsupported inputs mode %q", mode))
	}
}

type requirementSet struct {
	index map[string]int
	items []SubstateRequirement
}

func newRequirementSet() *requirementSet {
	return &requirementSet{index: map[string]int{}, items: []SubstateRequirement{}}
}

func (s *requirementSet) add(req SubstateRequirement) {
	if i, ok := s.index[req.SubstateID]; ok {
		if s.items[i].Version == nil && req.Version != nil {
			v := *req.Version
			s.items[i].Version = &v
		}
		return
	}
	s.index[req.SubstateID] = len(s.items)
	s.items = append(s.items, req)
}
