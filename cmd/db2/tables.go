package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/samcharles93/db2kit/internal/layout"
	"github.com/samcharles93/db2kit/internal/logger"
	"github.com/samcharles93/db2kit/internal/tablestore"
	"github.com/samcharles93/db2kit/pkg/wdc2"
)

// loadedTable is a table opened from the command line plus its specs.
type loadedTable struct {
	name  string
	path  string
	table *wdc2.Table
	specs []wdc2.FieldSpec
	named bool
}

// openTable accepts either a path to a table file or a table name looked up
// in the tables directory.
func openTable(ctx context.Context, arg string) (*loadedTable, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil, fmt.Errorf("table file or name is required")
	}
	layouts, err := loadLayouts(layoutPaths)
	if err != nil {
		return nil, err
	}

	if st, err := os.Stat(arg); err == nil && !st.IsDir() {
		tbl, err := tablestore.Open(arg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", arg, err)
		}
		name := layout.TableName(arg)
		specs, named, err := layouts.Resolve(name, tbl)
		if err != nil {
			return nil, err
		}
		return &loadedTable{name: name, path: arg, table: tbl, specs: specs, named: named}, nil
	}

	if tablesDir == "" {
		return nil, fmt.Errorf("%s is not a file and no tables directory is configured", arg)
	}
	store := tablestore.New(tablestore.Config{
		Dir:     tablesDir,
		Layouts: layouts,
		Logger:  logger.FromContext(ctx),
	})
	e, err := store.Get(ctx, arg)
	if err != nil {
		return nil, err
	}
	return &loadedTable{name: e.Name, path: e.File.Path, table: e.Table, specs: e.Specs, named: e.Named}, nil
}
