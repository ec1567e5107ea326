package funds

import (
	"github.com/forumchain/forumchain/chain"
	"github.com/forumchain/forumchain/chain/balance"
	"github.com/forumchain/forumchain/domain"
	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
	"github.com/forumchain/forumchain/util"
)

// EndBlock pays out matured savings withdrawals and settles due
// conversion requests. Both walk a time-ordered schedule index and stop
// at the first entry in the future.
func (m *Module) EndBlock(ctx *chain.ExecutionContext) error {
	if err := m.processSavingsWithdraws(ctx); err != nil {
		return err
	}
	return m.processConversions(ctx)
}

// dueScheduleKeys collects schedule index entries whose time component is
// not after now.
func dueScheduleKeys(s *state.Store, prefix []byte, now types.Time) ([][]byte, error) {
	var due [][]byte
	err := s.IteratePrefix(prefix, func(key []byte, _ state.Object) (bool, error) {
		at := types.Time(util.BytesToUint32(key[len(prefix) : len(prefix)+4]))
		if at.After(now) {
			return false, nil
		}
		due = append(due, append([]byte(nil), key...))
		return true, nil
	})
	return due, err
}

func (m *Module) processSavingsWithdraws(ctx *chain.ExecutionContext) error {
	due, err := dueScheduleKeys(ctx.State, domain.SavingsSchedulePrefix(), ctx.Now)
	if err != nil {
		return err
	}
	for _, schedKey := range due {
		refObj, err := ctx.State.GetObject(schedKey)
		if err != nil {
			return err
		}
		swoObj, err := ctx.State.GetObject(refObj.(*domain.ScheduleRef).Key)
		if err != nil {
			return err
		}
		swo := swoObj.(*domain.SavingsWithdraw)
		err = ctx.State.Apply(
			balance.Adjust(swo.To, swo.Amount),
			domain.UpdateAccount(swo.From, func(a *domain.Account) {
				a.SavingsWithdrawRequests--
			}),
			state.DeleteObject(refObj.(*domain.ScheduleRef).Key),
			state.DeleteObject(schedKey),
		)
		if err != nil {
			return err
		}
		err = ctx.NotifyVirtual(OpFillTransferFromSavings, &FillTransferFromSavingsAttributes{
			From:      swo.From,
			To:        swo.To,
			RequestID: swo.RequestID,
			Amount:    swo.Amount,
			Memo:      swo.Memo,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *Module) processConversions(ctx *chain.ExecutionContext) error {
	price, err := ctx.FeedPrice()
	if err != nil {
		return err
	}
	due, err := dueScheduleKeys(ctx.State, domain.ConvertSchedulePrefix(), ctx.Now)
	if err != nil {
		return err
	}
	// Requests can only exist if a feed existed when they were created,
	// but the feed may have gone stale since; a zero feed defers
	// settlement rather than dividing by zero.
	if len(due) > 0 && price.IsZero() {
		return nil
	}
	for _, schedKey := range due {
		refObj, err := ctx.State.GetObject(schedKey)
		if err != nil {
			return err
		}
		reqObj, err := ctx.State.GetObject(refObj.(*domain.ScheduleRef).Key)
		if err != nil {
			return err
		}
		req := reqObj.(*domain.ConvertRequest)
		converted := price.Convert(req.Amount)
		err = ctx.State.Apply(
			balance.Adjust(req.Owner, converted),
			domain.UpdateGlobalProperties(func(g *domain.GlobalProperties) {
				g.CurrentDebtSupply = g.CurrentDebtSupply.Sub(req.Amount)
				g.CurrentSupply = g.CurrentSupply.Add(converted)
			}),
			state.DeleteObject(refObj.(*domain.ScheduleRef).Key),
			state.DeleteObject(schedKey),
		)
		if err != nil {
			return err
		}
		err = ctx.NotifyVirtual(OpFillConvertRequest, &FillConvertRequestAttributes{
			Owner:     req.Owner,
			RequestID: req.RequestID,
			AmountIn:  req.Amount,
			AmountOut: converted,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
