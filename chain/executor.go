package chain

import (
	"fmt"

	"github.com/forumchain/forumchain/types"
)

type (
	// Module is a group of related operation evaluators. Modules that
	// also implement BlockProcessor get their sweep called at the end
	// of every block.
	Module interface {
		OpHandlers() map[string]OpExecutor
	}

	// BlockProcessor is the end-of-block sweep hook (delegation
	// expirations, vesting withdrawals, conversions, ...).
	BlockProcessor interface {
		EndBlock(ctx *ExecutionContext) error
	}

	// OpHandler pairs the two evaluator phases for one operation kind:
	// Validate is static (operation-local, no ledger access) and Apply
	// mutates the ledger.
	OpHandler[A any] struct {
		Validate func(attr *A) error
		Apply    func(ctx *ExecutionContext, attr *A) error
	}

	OpExecutor interface {
		ValidateOp(op *types.Operation) (any, error)
		ApplyOp(ctx *ExecutionContext, op *types.Operation, attr any) error
	}

	OpExecutors map[string]OpExecutor

	GenericValidateFunc[A any] func(attr *A) error
	GenericApplyFunc[A any]    func(ctx *ExecutionContext, attr *A) error
)

func NewOpHandler[A any](v GenericValidateFunc[A], a GenericApplyFunc[A]) *OpHandler[A] {
	return &OpHandler[A]{Validate: v, Apply: a}
}

func (h *OpHandler[A]) ValidateOp(op *types.Operation) (any, error) {
	attr := new(A)
	if err := op.UnmarshalAttributes(attr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal attributes: %w", err)
	}
	if h.Validate != nil {
		if err := h.Validate(attr); err != nil {
			return nil, err
		}
	}
	return attr, nil
}

func (h *OpHandler[A]) ApplyOp(ctx *ExecutionContext, op *types.Operation, attr any) error {
	opAttr, ok := attr.(*A)
	if !ok {
		return fmt.Errorf("incorrect attribute type %T for %s operation", attr, op.Type)
	}
	return h.Apply(ctx, opAttr)
}

// ErrUnknownOperation aborts block processing: a node that cannot decode
// an operation must not guess.
var ErrUnknownOperation = fmt.Errorf("unknown operation type")

// ValidateAndApply runs both evaluator phases for one operation.
func (h OpExecutors) ValidateAndApply(ctx *ExecutionContext, op *types.Operation) error {
	handler, found := h[op.Type]
	if !found {
		return fmt.Errorf("%w: %q", ErrUnknownOperation, op.Type)
	}
	attr, err := handler.ValidateOp(op)
	if err != nil {
		return fmt.Errorf("%q validation failed: %w", op.Type, err)
	}
	if err := handler.ApplyOp(ctx, op, attr); err != nil {
		return fmt.Errorf("%q apply failed: %w", op.Type, err)
	}
	return nil
}

func (h OpExecutors) Add(src map[string]OpExecutor) error {
	for name, handler := range src {
		if name == "" {
			return fmt.Errorf("operation executor must have non-empty operation type name")
		}
		if handler == nil {
			return fmt.Errorf("operation executor must not be nil (%s)", name)
		}
		if _, ok := h[name]; ok {
			return fmt.Errorf("operation executor for %q is already registered", name)
		}
		h[name] = handler
	}
	return nil
}
