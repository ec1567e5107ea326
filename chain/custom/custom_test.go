package custom

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forumchain/forumchain/chain"
	"github.com/forumchain/forumchain/hardfork"
	"github.com/forumchain/forumchain/internal/chaintest"
	"github.com/forumchain/forumchain/types"
)

func TestCustomJSONDispatch(t *testing.T) {
	s := chaintest.NewState(t, "alice")
	ctx := chaintest.NewContext(t, s, hardfork.Latest)
	m := NewModule()

	var got string
	err := m.Register("follow", InterpreterFunc(func(_ *chain.ExecutionContext, payload []byte) error {
		got = string(payload)
		return nil
	}))
	require.NoError(t, err)

	// double registration is a programming error
	err = m.Register("follow", InterpreterFunc(func(_ *chain.ExecutionContext, _ []byte) error { return nil }))
	require.Error(t, err)

	err = chaintest.Apply(ctx, m, OpCustomJSON, &CustomJSONAttributes{
		RequiredPostingAuths: []types.AccountName{"alice"},
		ID:                   "follow",
		JSON:                 `{"follower":"alice"}`,
	})
	require.NoError(t, err)
	require.Equal(t, `{"follower":"alice"}`, got)

	// payloads without an interpreter pass through untouched
	err = chaintest.Apply(ctx, m, OpCustomJSON, &CustomJSONAttributes{
		RequiredPostingAuths: []types.AccountName{"alice"},
		ID:                   "unknown",
		JSON:                 `{}`,
	})
	require.NoError(t, err)
}

func TestCustomJSONValidate(t *testing.T) {
	s := chaintest.NewState(t, "alice")
	ctx := chaintest.NewContext(t, s, hardfork.Latest)
	m := NewModule()

	var invalid *types.InvalidParameterError

	err := chaintest.Apply(ctx, m, OpCustomJSON, &CustomJSONAttributes{
		ID:   "follow",
		JSON: `{}`,
	})
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, "required_auths", invalid.Param)

	err = chaintest.Apply(ctx, m, OpCustomJSON, &CustomJSONAttributes{
		RequiredAuths: []types.AccountName{"alice"},
		ID:            "follow",
		JSON:          `{not json`,
	})
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, "json", invalid.Param)
}

func TestCustomInterpreterFailureOnlyRejectsWhenProducing(t *testing.T) {
	s := chaintest.NewState(t, "alice")
	m := NewModule()
	boom := errors.New("boom")
	err := m.Register("fragile", InterpreterFunc(func(_ *chain.ExecutionContext, _ []byte) error {
		return boom
	}))
	require.NoError(t, err)

	attrs := &CustomJSONAttributes{
		RequiredAuths: []types.AccountName{"alice"},
		ID:            "fragile",
		JSON:          `{}`,
	}

	// replaying a block: the payload failure is logged and swallowed
	replay := chaintest.NewContext(t, s, hardfork.Latest)
	require.NoError(t, chaintest.Apply(replay, m, OpCustomJSON, attrs))

	// producing: the transaction is rejected before it enters a block
	producing := chaintest.NewContext(t, s, hardfork.Latest)
	producing.HF = hardfork.NewSet(hardfork.Latest, true)
	err = chaintest.Apply(producing, m, OpCustomJSON, attrs)
	require.ErrorIs(t, err, boom)
}

func TestCustomBinary(t *testing.T) {
	s := chaintest.NewState(t, "alice")
	m := NewModule()

	var got []byte
	require.NoError(t, m.Register("blob", InterpreterFunc(func(_ *chain.ExecutionContext, payload []byte) error {
		got = payload
		return nil
	})))

	attrs := &CustomBinaryAttributes{
		RequiredAuths: []types.AccountName{"alice"},
		ID:            "blob",
		Data:          []byte{0xDE, 0xAD},
	}

	old := chaintest.NewContext(t, s, hardfork.HF13)
	err := chaintest.Apply(old, m, OpCustomBinary, attrs)
	require.ErrorIs(t, err, types.ErrUnsupportedOperation)

	ctx := chaintest.NewContext(t, s, hardfork.Latest)
	require.NoError(t, chaintest.Apply(ctx, m, OpCustomBinary, attrs))
	require.Equal(t, []byte{0xDE, 0xAD}, got)
}

func TestCustomNumericID(t *testing.T) {
	s := chaintest.NewState(t, "alice")
	ctx := chaintest.NewContext(t, s, hardfork.Latest)
	m := NewModule()

	var calls int
	require.NoError(t, m.Register("7", InterpreterFunc(func(_ *chain.ExecutionContext, _ []byte) error {
		calls++
		return nil
	})))

	err := chaintest.Apply(ctx, m, OpCustom, &CustomAttributes{
		RequiredAuths: []types.AccountName{"alice"},
		ID:            7,
		Data:          []byte{1, 2, 3},
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}
