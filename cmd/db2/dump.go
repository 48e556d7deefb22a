package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/db2kit/internal/logger"
	"github.com/samcharles93/db2kit/internal/tablestore"
)

type dumpOptions struct {
	ids    []int32
	offset int
	limit  int
}

func dumpCmd() *cli.Command {
	var (
		id     int64
		offset int64
		limit  int64
	)

	return &cli.Command{
		Name:      "dump",
		Usage:     "Write table rows as JSON lines",
		ArgsUsage: "<file.db2 | table name>",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:        "id",
				Usage:       "dump only the row with this id",
				Destination: &id,
			},
			&cli.Int64Flag{
				Name:        "offset",
				Usage:       "skip this many rows (in id order)",
				Destination: &offset,
			},
			&cli.Int64Flag{
				Name:        "limit",
				Aliases:     []string{"n"},
				Usage:       "maximum rows to write (0 = all)",
				Destination: &limit,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			lt, err := openTable(ctx, cmd.Args().First())
			if err != nil {
				return err
			}
			opts := dumpOptions{offset: int(offset), limit: int(limit)}
			if cmd.IsSet("id") {
				opts.ids = []int32{int32(id)}
			}
			log := logger.FromContext(ctx)
			if !lt.named {
				log.Debug("no layout definition, using inferred fields", "table", lt.name)
			}
			w := bufio.NewWriter(os.Stdout)
			n, err := writeDump(ctx, w, lt, opts)
			if flushErr := w.Flush(); err == nil {
				err = flushErr
			}
			log.Debug("dump complete", "table", lt.name, "rows", n)
			return err
		},
	}
}

// writeDump writes one JSON object per row and returns the number written.
func writeDump(ctx context.Context, w io.Writer, lt *loadedTable, opts dumpOptions) (int, error) {
	entry := &tablestore.Entry{Name: lt.name, Table: lt.table, Specs: lt.specs, Named: lt.named}
	ids := opts.ids
	if ids == nil {
		ids = lt.table.IDs()
		if opts.offset > 0 {
			ids = ids[min(opts.offset, len(ids)):]
		}
		if opts.limit > 0 && opts.limit < len(ids) {
			ids = ids[:opts.limit]
		}
	}

	enc := json.NewEncoder(w)
	for n, id := range ids {
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return n, err
			}
		}
		rec, err := entry.Record(id)
		if err != nil {
			return n, fmt.Errorf("%s: %w", lt.name, err)
		}
		if err := enc.Encode(rec); err != nil {
			return n, err
		}
	}
	return len(ids), nil
}
