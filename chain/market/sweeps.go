package market

import (
	"github.com/forumchain/forumchain/chain"
	"github.com/forumchain/forumchain/domain"
	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
	"github.com/forumchain/forumchain/util"
)

// EndBlock refunds orders whose expiration has passed.
func (m *Module) EndBlock(ctx *chain.ExecutionContext) error {
	prefix := domain.OrderExpirationPrefix()
	var due [][]byte
	err := ctx.State.IteratePrefix(prefix, func(key []byte, _ state.Object) (bool, error) {
		at := types.Time(util.BytesToUint32(key[len(prefix) : len(prefix)+4]))
		if at.After(ctx.Now) {
			return false, nil
		}
		due = append(due, append([]byte(nil), key...))
		return true, nil
	})
	if err != nil {
		return err
	}
	for _, schedKey := range due {
		refObj, err := ctx.State.GetObject(schedKey)
		if err != nil {
			return err
		}
		orderObj, err := ctx.State.GetObject(refObj.(*domain.ScheduleRef).Key)
		if err != nil {
			return err
		}
		if err := cancelOrder(ctx.State, orderObj.(*domain.LimitOrder)); err != nil {
			return err
		}
	}
	return nil
}
