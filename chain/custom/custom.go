// Package custom implements the application-defined operation family:
// opaque payloads the consensus layer carries but does not interpret.
// Registered interpreters may attach meaning; their failures only reject
// a transaction on the producing node, so an interpreter bug can never
// fork consensus.
package custom

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/forumchain/forumchain/chain"
	"github.com/forumchain/forumchain/hardfork"
	"github.com/forumchain/forumchain/logger"
	"github.com/forumchain/forumchain/types"
)

const (
	OpCustom       = "custom"
	OpCustomJSON   = "custom_json"
	OpCustomBinary = "custom_binary"

	MaxCustomIDLength = 32
)

type (
	CustomAttributes struct {
		_             struct{} `cbor:",toarray"`
		RequiredAuths []types.AccountName
		ID            uint16
		Data          []byte
	}

	CustomJSONAttributes struct {
		_                    struct{} `cbor:",toarray"`
		RequiredAuths        []types.AccountName
		RequiredPostingAuths []types.AccountName
		ID                   string
		JSON                 string
	}

	CustomBinaryAttributes struct {
		_                    struct{} `cbor:",toarray"`
		RequiredAuths        []types.AccountName
		RequiredPostingAuths []types.AccountName
		ID                   string
		Data                 []byte
	}

	// Interpreter gives meaning to one custom payload id.
	Interpreter interface {
		Apply(ctx *chain.ExecutionContext, payload []byte) error
	}

	InterpreterFunc func(ctx *chain.ExecutionContext, payload []byte) error

	Module struct {
		interpreters map[string]Interpreter
	}
)

func (f InterpreterFunc) Apply(ctx *chain.ExecutionContext, payload []byte) error {
	return f(ctx, payload)
}

func NewModule() *Module {
	return &Module{interpreters: make(map[string]Interpreter)}
}

// Register attaches an interpreter for one custom id. Must happen before
// block processing starts.
func (m *Module) Register(id string, in Interpreter) error {
	if _, ok := m.interpreters[id]; ok {
		return fmt.Errorf("interpreter for custom id %q is already registered", id)
	}
	m.interpreters[id] = in
	return nil
}

func (m *Module) OpHandlers() map[string]chain.OpExecutor {
	return map[string]chain.OpExecutor{
		OpCustom:       chain.NewOpHandler(validateCustom, m.applyCustom),
		OpCustomJSON:   chain.NewOpHandler(validateCustomJSON, m.applyCustomJSON),
		OpCustomBinary: chain.NewOpHandler(validateCustomBinary, m.applyCustomBinary),
	}
}

func validateCustom(attr *CustomAttributes) error {
	if len(attr.RequiredAuths) == 0 {
		return &types.InvalidParameterError{Param: "required_auths", Reason: "at least one account must authorize the payload"}
	}
	return nil
}

func (m *Module) applyCustom(ctx *chain.ExecutionContext, attr *CustomAttributes) error {
	return m.interpret(ctx, fmt.Sprint(attr.ID), attr.Data)
}

func validateCustomJSON(attr *CustomJSONAttributes) error {
	if len(attr.RequiredAuths)+len(attr.RequiredPostingAuths) == 0 {
		return &types.InvalidParameterError{Param: "required_auths", Reason: "at least one account must authorize the payload"}
	}
	if attr.ID == "" || len(attr.ID) > MaxCustomIDLength {
		return &types.InvalidParameterError{Param: "id", Reason: "id must be 1 to 32 characters"}
	}
	if len(attr.JSON) > types.MaxJSONSize {
		return &types.InvalidParameterError{Param: "json", Reason: "payload is too large"}
	}
	if !json.Valid([]byte(attr.JSON)) {
		return &types.InvalidParameterError{Param: "json", Reason: "payload must be valid json"}
	}
	return nil
}

func (m *Module) applyCustomJSON(ctx *chain.ExecutionContext, attr *CustomJSONAttributes) error {
	return m.interpret(ctx, attr.ID, []byte(attr.JSON))
}

func validateCustomBinary(attr *CustomBinaryAttributes) error {
	if len(attr.RequiredAuths)+len(attr.RequiredPostingAuths) == 0 {
		return &types.InvalidParameterError{Param: "required_auths", Reason: "at least one account must authorize the payload"}
	}
	if attr.ID == "" || len(attr.ID) > MaxCustomIDLength {
		return &types.InvalidParameterError{Param: "id", Reason: "id must be 1 to 32 characters"}
	}
	return nil
}

func (m *Module) applyCustomBinary(ctx *chain.ExecutionContext, attr *CustomBinaryAttributes) error {
	if !ctx.HF.Has(hardfork.HF14) {
		return types.Unsupported("custom_binary requires a later protocol version")
	}
	return m.interpret(ctx, attr.ID, attr.Data)
}

func (m *Module) interpret(ctx *chain.ExecutionContext, id string, payload []byte) error {
	in, ok := m.interpreters[id]
	if !ok {
		return nil
	}
	if err := in.Apply(ctx, payload); err != nil {
		if ctx.HF.Producing() {
			return fmt.Errorf("custom payload %q rejected: %w", id, err)
		}
		ctx.Log.Warn("custom payload interpreter failed", slog.String("id", id), logger.Error(err))
	}
	return nil
}
