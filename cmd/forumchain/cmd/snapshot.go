package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forumchain/forumchain/domain"
	"github.com/forumchain/forumchain/keyvaluedb/boltdb"
	"github.com/forumchain/forumchain/node"
	"github.com/forumchain/forumchain/state"
)

const (
	flagOut   = "out"
	flagIn    = "in"
	flagBlock = "block"
)

func newSnapshotCmd(base *baseConfiguration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Export and import ledger snapshots",
	}
	cmd.AddCommand(newSnapshotExportCmd(base))
	cmd.AddCommand(newSnapshotImportCmd(base))
	return cmd
}

func newSnapshotExportCmd(base *baseConfiguration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a ledger snapshot to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return snapshotExportRunFn(base, cmd)
		},
	}
	cmd.Flags().String(flagOut, "", "output file")
	cmd.Flags().Uint32(flagBlock, 0, "export the snapshot of this block instead of the head")
	_ = cmd.MarkFlagRequired(flagOut)
	return cmd
}

func snapshotExportRunFn(base *baseConfiguration, cmd *cobra.Command) error {
	out, err := cmd.Flags().GetString(flagOut)
	if err != nil {
		return fmt.Errorf("reading flag %q: %w", flagOut, err)
	}
	blockNum, err := cmd.Flags().GetUint32(flagBlock)
	if err != nil {
		return fmt.Errorf("reading flag %q: %w", flagBlock, err)
	}

	db, err := boltdb.New(base.dbPath())
	if err != nil {
		return fmt.Errorf("opening chain database: %w", err)
	}
	defer func() { _ = db.Close() }()
	snapshots := node.NewSnapshotStore(db)

	var store *state.Store
	if cmd.Flags().Changed(flagBlock) {
		store, err = snapshots.Load(blockNum)
	} else {
		var head *node.Head
		store, head, err = snapshots.LoadLatest()
		if head != nil {
			blockNum = head.BlockNum
		}
	}
	if err != nil {
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating %s: %w", out, err)
	}
	defer func() { _ = f.Close() }()
	if err := store.WriteSnapshot(f, domain.Encode); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", out, err)
	}
	base.observe.Logger().Info(fmt.Sprintf("snapshot of block %d written to %s", blockNum, out))
	return nil
}

func newSnapshotImportCmd(base *baseConfiguration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Initialize the chain database from a snapshot file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return snapshotImportRunFn(base, cmd)
		},
	}
	cmd.Flags().String(flagIn, "", "input file")
	cmd.Flags().Bool(flagForce, false, "overwrite an existing chain database")
	_ = cmd.MarkFlagRequired(flagIn)
	return cmd
}

func snapshotImportRunFn(base *baseConfiguration, cmd *cobra.Command) error {
	in, err := cmd.Flags().GetString(flagIn)
	if err != nil {
		return fmt.Errorf("reading flag %q: %w", flagIn, err)
	}
	force, err := cmd.Flags().GetBool(flagForce)
	if err != nil {
		return fmt.Errorf("reading flag %q: %w", flagForce, err)
	}

	f, err := os.Open(in)
	if err != nil {
		return fmt.Errorf("opening %s: %w", in, err)
	}
	defer func() { _ = f.Close() }()
	store, err := state.ReadSnapshot(f, domain.Decode)
	if err != nil {
		return fmt.Errorf("reading snapshot %s: %w", in, err)
	}
	// the head pointer lives in the ledger itself
	gp, err := domain.GetGlobalProperties(store)
	if err != nil {
		return fmt.Errorf("snapshot %s holds no chain state: %w", in, err)
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
	err = snapshots.Save(store, node.Head{
		BlockNum: gp.HeadBlockNumber,
		BlockID:  gp.HeadBlockID,
		Time:     gp.Time,
	})
	if err != nil {
		return err
	}
	base.observe.Logger().Info(fmt.Sprintf("snapshot of block %d imported into %s", gp.HeadBlockNumber, base.dbPath()))
	return nil
}
