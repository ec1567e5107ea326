package chain

import (
	"fmt"

	"github.com/forumchain/forumchain/domain"
	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
)

type (
	// GenesisAccount seeds one account at chain start.
	GenesisAccount struct {
		Name    types.AccountName
		Key     types.PublicKey
		Balance types.Asset // CORE
		Witness bool
	}

	// GenesisConfig is the chain-start state.
	GenesisConfig struct {
		Time     types.Time
		Accounts []GenesisAccount
	}
)

// InitGenesis populates an empty store with the singletons and seed
// accounts. The store is committed afterwards.
func InitGenesis(store *state.Store, cfg GenesisConfig) error {
	if store.CountPrefix(nil) != 0 {
		return fmt.Errorf("genesis init on non-empty store")
	}
	actions := []state.Action{
		state.AddObject(domain.GlobalPropertiesKey(), domain.NewGlobalProperties(cfg.Time)),
		state.AddObject(domain.WitnessScheduleKey(), domain.NewWitnessSchedule()),
		state.AddObject(domain.HardforkStateKey(), &domain.HardforkState{
			ProcessedHardforks: []types.Time{cfg.Time},
		}),
		state.AddObject(domain.FeedHistoryKey(), &domain.FeedHistory{}),
	}
	var supply int64
	for _, ga := range cfg.Accounts {
		if err := types.ValidateAccountName(ga.Name); err != nil {
			return err
		}
		acc := domain.NewAccount(ga.Name, cfg.Time)
		acc.Balance = ga.Balance
		acc.RecoveryAccount = ga.Name
		supply += ga.Balance.Amount
		actions = append(actions,
			state.AddObject(domain.AccountKey(ga.Name), acc),
			state.AddObject(domain.AuthorityKey(ga.Name), &domain.AccountAuthority{
				Account: ga.Name,
				Owner:   types.KeyAuthority(ga.Key, 1),
				Active:  types.KeyAuthority(ga.Key, 1),
				Posting: types.KeyAuthority(ga.Key, 1),
			}),
			state.AddObject(domain.MetadataKey(ga.Name), &domain.AccountMetadata{Account: ga.Name}),
		)
		if ga.Witness {
			actions = append(actions, state.AddObject(domain.WitnessKey(ga.Name), &domain.Witness{
				Owner:      ga.Name,
				Created:    cfg.Time,
				SigningKey: ga.Key,
				Props:      domain.DefaultChainProperties(),
			}))
		}
	}
	actions = append(actions, domain.UpdateGlobalProperties(func(g *domain.GlobalProperties) {
		g.CurrentSupply = types.CoreAsset(supply)
	}))
	if err := store.Apply(actions...); err != nil {
		return err
	}
	store.Commit()
	return nil
}
