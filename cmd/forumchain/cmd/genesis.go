package cmd

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/forumchain/forumchain/chain"
	"github.com/forumchain/forumchain/keyvaluedb/boltdb"
	"github.com/forumchain/forumchain/node"
	"github.com/forumchain/forumchain/state"
	"github.com/forumchain/forumchain/types"
)

const (
	flagGenesisFile = "genesis-file"
	flagForce       = "force"
)

type (
	genesisFileConfig struct {
		// Time is the chain start as unix seconds; zero means now.
		Time     int64                  `mapstructure:"time"`
		Accounts []genesisAccountConfig `mapstructure:"accounts"`
	}

	genesisAccountConfig struct {
		Name string `mapstructure:"name"`
		// Key is the hex-encoded compressed public key used for all
		// three authorities of the account.
		Key     string `mapstructure:"key"`
		Balance int64  `mapstructure:"balance"`
		Witness bool   `mapstructure:"witness"`
	}
)

func newGenesisCmd(base *baseConfiguration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "genesis",
		Short: "Initialize a new chain database from a genesis file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return genesisRunFn(base, cmd)
		},
	}
	cmd.Flags().String(flagGenesisFile, "", "genesis configuration file (yaml)")
	cmd.Flags().Bool(flagForce, false, "overwrite an existing chain database")
	_ = cmd.MarkFlagRequired(flagGenesisFile)
	return cmd
}

func genesisRunFn(base *baseConfiguration, cmd *cobra.Command) error {
	genesisFile, err := cmd.Flags().GetString(flagGenesisFile)
	if err != nil {
		return fmt.Errorf("reading flag %q: %w", flagGenesisFile, err)
	}
	force, err := cmd.Flags().GetBool(flagForce)
	if err != nil {
		return fmt.Errorf("reading flag %q: %w", flagForce, err)
	}
	cfg, err := loadGenesisFile(genesisFile)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(base.HomeDir, 0700); err != nil {
		return fmt.Errorf("creating home directory: %w", err)
	}
	db, err := boltdb.New(base.dbPath())
	if err != nil {
		return fmt.Errorf("opening chain database: %w", err)
	}
	defer func() { _ = db.Close() }()

	snapshots := node.NewSnapshotStore(db)
	head, err := snapshots.Head()
	if err != nil {
		return err
	}
	if head != nil && !force {
		return fmt.Errorf("database %s already holds a chain at block %d, use --%s to overwrite", base.dbPath(), head.BlockNum, flagForce)
	}

	store := state.NewStore()
	if err := chain.InitGenesis(store, cfg); err != nil {
		return fmt.Errorf("building genesis state: %w", err)
	}
	if err := snapshots.Save(store, node.Head{Time: cfg.Time}); err != nil {
		return err
	}
	base.observe.Logger().Info(fmt.Sprintf("chain initialized with %d accounts in %s", len(cfg.Accounts), base.dbPath()))
	return nil
}

func loadGenesisFile(path string) (chain.GenesisConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return chain.GenesisConfig{}, fmt.Errorf("reading genesis file %s: %w", path, err)
	}
	var fileCfg genesisFileConfig
	if err := v.Unmarshal(&fileCfg); err != nil {
		return chain.GenesisConfig{}, fmt.Errorf("parsing genesis file %s: %w", path, err)
	}
	if fileCfg.Time == 0 {
		fileCfg.Time = time.Now().Unix()
	}
	if len(fileCfg.Accounts) == 0 {
		return chain.GenesisConfig{}, fmt.Errorf("genesis file %s names no accounts", path)
	}

	cfg := chain.GenesisConfig{Time: types.Time(fileCfg.Time)}
	for _, ac := range fileCfg.Accounts {
		name := types.AccountName(ac.Name)
		if err := types.ValidateAccountName(name); err != nil {
			return chain.GenesisConfig{}, fmt.Errorf("genesis account %q: %w", ac.Name, err)
		}
		key, err := hex.DecodeString(ac.Key)
		if err != nil {
			return chain.GenesisConfig{}, fmt.Errorf("genesis account %q key: %w", ac.Name, err)
		}
		if err := types.ValidatePublicKey(key); err != nil {
			return chain.GenesisConfig{}, fmt.Errorf("genesis account %q key: %w", ac.Name, err)
		}
		if ac.Balance < 0 {
			return chain.GenesisConfig{}, fmt.Errorf("genesis account %q balance is negative", ac.Name)
		}
		cfg.Accounts = append(cfg.Accounts, chain.GenesisAccount{
			Name:    name,
			Key:     key,
			Balance: types.CoreAsset(ac.Balance),
			Witness: ac.Witness,
		})
	}
	return cfg, nil
}
