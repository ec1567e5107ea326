package chain

import (
	"github.com/forumchain/forumchain/domain"
	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
)

// AdjustProxiedWitnessVotes propagates a change of delta in an account's
// vesting shares up its proxy chain. Accounts without a proxy apply the
// delta to every witness they vote for; proxied accounts credit the
// proxy's per-depth accumulator and recurse, bounded by the maximum proxy
// recursion depth.
func AdjustProxiedWitnessVotes(s *state.Store, acc *domain.Account, delta int64) error {
	if delta == 0 {
		return nil
	}
	return adjustProxiedScalar(s, acc, delta, 0)
}

func adjustProxiedScalar(s *state.Store, acc *domain.Account, delta int64, depth int) error {
	if acc.Proxy == "" {
		return adjustWitnessVotes(s, acc.Name, delta)
	}
	if depth >= types.MaxProxyRecursionDepth {
		return nil
	}
	proxy, err := domain.GetAccount(s, acc.Proxy)
	if err != nil {
		return err
	}
	if err := s.Apply(domain.UpdateAccount(acc.Proxy, func(p *domain.Account) {
		p.ProxiedVsfVotes[depth] += delta
	})); err != nil {
		return err
	}
	return adjustProxiedScalar(s, proxy, delta, depth+1)
}

/// AdjustProxiedWitnessVotesArray is the proxy-change form: the delta
// array carries the moving account's own stake at level 0 plus its
// proxied accumulators shifted one level down.
func AdjustProxiedWitnessVotesArray(s *state.Store, acc *domain.Account, delta [types.MaxProxyRecursionDepth + 1]int64) error {
	return adjustProxiedArray(s, acc, delta, 0)
}

func adjustProxiedArray(s *state.Store, acc *domain.Account, delta [types.MaxProxyRecursionDepth + 1]int64, depth int) error {
	if acc.Proxy == "" {
		var total int64
		for i := 0; i <= types.MaxProxyRecursionDepth-depth; i++ {
			total += delta[i]
		}
		return adjustWitnessVotes(s, acc.Name, total)
	}
	proxy, err := domain.GetAccount(s, acc.Proxy)
	if err != nil {
		return err
	}
	if err := s.Apply(domain.UpdateAccount(acc.Proxy, func(p *domain.Account) {
		for i := types.MaxProxyRecursionDepth - depth - 1; i >= 0; i-- {
			p.ProxiedVsfVotes[i+depth] += delta[i]
		}
	})); err != nil {
		return err
	}
	return adjustProxiedArray(s, proxy, delta, depth+1)
}

// ClearWitnessVotes removes every witness approval an account holds,
// subtracting the account's full vote weight from each witness total.
func ClearWitnessVotes(s *state.Store, acc *domain.Account) error {
	weight := acc.WitnessVoteWeight()
	var keys [][]byte
	var witnesses []types.AccountName
	err := s.IteratePrefix(domain.WitnessVotePrefix(acc.Name), func(key []byte, obj state.Object) (bool, error) {
		keys = append(keys, append([]byte(nil), key...))
		witnesses = append(witnesses, obj.(*domain.WitnessVote).Witness)
		return true, nil
	})
	if err != nil {
		return err
	}
	for i, w := range witnesses {
		err := s.Apply(
			domain.UpdateWitness(w, func(wit *domain.Witness) {
				wit.Votes -= weight
			}),
			state.DeleteObject(keys[i]),
		)
		if err != nil {
			return err
		}
	}
	return s.Apply(domain.UpdateAccount(acc.Name, func(a *domain.Account) {
		a.WitnessesVotedFor = 0
	}))
}

func adjustWitnessVotes(s *state.Store, voter types.AccountName, delta int64) error {
	var witnesses []types.AccountName
	err := s.IteratePrefix(domain.WitnessVotePrefix(voter), func(_ []byte, obj state.Object) (bool, error) {
		witnesses = append(witnesses, obj.(*domain.WitnessVote).Witness)
		return true, nil
	})
	if err != nil {
		return err
	}
	for _, w := range witnesses {
		if err := s.Apply(domain.UpdateWitness(w, func(wit *domain.Witness) {
			wit.Votes += delta
		})); err != nil {
			return err
		}
	}
	return nil
}
