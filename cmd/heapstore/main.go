// Command heapstore is a small operator CLI over the storage engine: it
// parses a text catalog, opens the tables it names, and scans them.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"heapstore/pkg/catalog"
	"heapstore/pkg/config"
	"heapstore/pkg/log/wal"
	"heapstore/pkg/logging"
	"heapstore/pkg/memory"
	"heapstore/pkg/primitives"
	"heapstore/pkg/storage/heap"
)

func main() {
	root := &cobra.Command{
		Use:           "heapstore",
		Short:         "heapstore is a transactional heap-file storage engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(tablesCmd(), scanCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func tablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables <catalog-file>",
		Short: "List the tables defined in a catalog file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, err := catalog.Parse(afero.NewOsFs(), primitives.Filepath(args[0]))
			if err != nil {
				return err
			}
			for _, def := range defs {
				pk := ""
				if def.PrimaryKey != "" {
					pk = fmt.Sprintf("  pk=%s", def.PrimaryKey)
				}
				fmt.Printf("%s %s%s\n", def.Name, def.Schema, pk)
			}
			return nil
		},
	}
}

func scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan <catalog-file> <table>",
		Short: "Scan every tuple of a table in one read-only transaction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log, err := logging.New(cfg.Environment)
			if err != nil {
				return err
			}
			defer log.Sync()

			fs := afero.NewOsFs()
			tables := memory.NewTableManager()
			if err := catalog.Load(fs, tables, primitives.Filepath(args[0])); err != nil {
				return err
			}
			defer tables.Close()

			w, err := wal.NewWAL(fs, primitives.Filepath(cfg.WALPath), cfg.WALBufferSize, log)
			if err != nil {
				return err
			}

			pool := memory.NewPageStore(tables, w, cfg.PoolCapacity, log)
			pool.SetLockPollInterval(cfg.LockPollInterval)
			defer pool.Close()

			tableID, err := tables.GetTableID(args[1])
			if err != nil {
				return err
			}
			dbFile, err := tables.GetDbFile(tableID)
			if err != nil {
				return err
			}

			ctx := pool.Begin()
			it := dbFile.(*heap.HeapFile).Iterator(ctx.ID, pool)
			if err := it.Open(); err != nil {
				pool.AbortTransaction(ctx.ID)
				return err
			}

			count := 0
			for {
				hasNext, err := it.HasNext()
				if err != nil {
					pool.AbortTransaction(ctx.ID)
					return err
				}
				if !hasNext {
					break
				}
				t, err := it.Next()
				if err != nil {
					pool.AbortTransaction(ctx.ID)
					return err
				}
				fmt.Println(t)
				count++
			}
			it.Close()

			if err := pool.CommitTransaction(ctx.ID); err != nil {
				return err
			}
			fmt.Printf("%d tuple(s)\n", count)
			return nil
		},
	}
}
