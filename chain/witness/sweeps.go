package witness

import (
	"sort"

	"github.com/forumchain/forumchain/chain"
	"github.com/forumchain/forumchain/domain"
	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
)

// EndBlock refreshes the debt price feed once per feed interval: the
// median of all published witness rates is pushed into the rolling
// history window, and the consensus median is the median of that window.
func (m *Module) EndBlock(ctx *chain.ExecutionContext) error {
	if ctx.BlockNum == 0 || ctx.BlockNum%types.FeedIntervalBlocks != 0 {
		return nil
	}
	var rates []types.Price
	err := ctx.State.IteratePrefix(domain.WitnessPrefix(), func(_ []byte, obj state.Object) (bool, error) {
		w := obj.(*domain.Witness)
		if !w.ExchangeRate.IsZero() {
			rates = append(rates, w.ExchangeRate)
		}
		return true, nil
	})
	if err != nil {
		return err
	}
	if len(rates) == 0 {
		return nil
	}
	sample := medianPrice(rates)
	return ctx.State.Apply(state.UpdateObject(domain.FeedHistoryKey(), func(obj state.Object) (state.Object, error) {
		fh := obj.(*domain.FeedHistory)
		fh.PriceHistory = append(fh.PriceHistory, sample)
		if len(fh.PriceHistory) > types.FeedHistoryWindow {
			fh.PriceHistory = fh.PriceHistory[len(fh.PriceHistory)-types.FeedHistoryWindow:]
		}
		fh.CurrentMedianPrice = medianPrice(fh.PriceHistory)
		return fh, nil
	}))
}

func medianPrice(prices []types.Price) types.Price {
	sorted := make([]types.Price, len(prices))
	copy(sorted, prices)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Cmp(sorted[j]) < 0 })
	return sorted[len(sorted)/2]
}
