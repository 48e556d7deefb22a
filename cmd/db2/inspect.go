package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/db2kit/internal/tablestore"
	"github.com/samcharles93/db2kit/pkg/wdc2"
)

type columnReport struct {
	Index        int    `json:"index"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Compression  string `json:"compression"`
	RecordOffset int    `json:"record_offset"`
	Size         int    `json:"size"`
	BitWidth     int    `json:"bit_width"`
	Cardinality  int    `json:"cardinality,omitempty"`
	Pallet       int    `json:"pallet_values,omitempty"`
	Common       int    `json:"common_values,omitempty"`
	Default      uint32 `json:"default,omitempty"`
}

type inspectReport struct {
	Name       string             `json:"name"`
	Path       string             `json:"path"`
	Header     wdc2.Header        `json:"header"`
	Section    wdc2.SectionHeader `json:"section"`
	Flags      []string           `json:"flags"`
	Rows       int                `json:"rows"`
	Copies     int                `json:"copies"`
	Sparse     int                `json:"sparse_entries"`
	References int                `json:"references"`
	Strings    int                `json:"strings"`
	Named      bool               `json:"named_layout"`
	Columns    []columnReport     `json:"columns"`
}

func inspectCmd() *cli.Command {
	var asJSON bool

	return &cli.Command{
		Name:      "inspect",
		Usage:     "Show the header, section and column layout of a table",
		ArgsUsage: "<file.db2 | table name>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the report as JSON",
				Destination: &asJSON,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			lt, err := openTable(ctx, cmd.Args().First())
			if err != nil {
				return err
			}
			rep := buildReport(lt)
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			return writeReport(os.Stdout, rep)
		},
	}
}

func buildReport(lt *loadedTable) inspectReport {
	t := lt.table
	rep := inspectReport{
		Name:    lt.name,
		Path:    lt.path,
		Header:  t.Header(),
		Section: t.Section(),
		Flags:   flagNames(t.Flags()),
		Rows:    t.Len(),
		Copies:  len(t.CopyTable()),
		Sparse:  len(t.SparseEntries()),
		Strings: t.StringCount(),
		Named:   lt.named,
	}
	if refs := t.References(); refs != nil {
		rep.References = len(refs.Entries)
	}

	specs := make(map[int]wdc2.FieldSpec, len(lt.specs))
	for _, s := range lt.specs {
		specs[s.Index] = s
	}
	fields := t.FieldMeta()
	for i, col := range t.Columns() {
		cr := columnReport{
			Index:        i,
			Name:         fmt.Sprintf("field_%d", i),
			Type:         "-",
			Compression:  col.Compression.String(),
			RecordOffset: int(col.RecordOffset),
			Size:         int(col.Size),
		}
		if s, ok := specs[i]; ok {
			cr.Name = tablestore.FieldName(s)
			cr.Type = s.Type.String()
			if s.IsArray() {
				cr.Type = fmt.Sprintf("%s[%d]", cr.Type, s.ArraySize)
			}
		}
		switch col.Compression {
		case wdc2.CompressionNone:
			cr.BitWidth = fields[i].Width()
			if cr.BitWidth <= 0 {
				cr.BitWidth = col.BitWidth()
			}
		case wdc2.CompressionImmediate, wdc2.CompressionSignedImmediate, wdc2.CompressionPallet:
			cr.BitWidth = col.BitWidth()
		case wdc2.CompressionPalletArray:
			cr.BitWidth = col.BitWidth()
			cr.Cardinality = col.Cardinality()
		case wdc2.CompressionCommon:
			cr.Default = uint32(col.DefaultValue())
			cr.Common = t.CommonLen(i)
		}
		cr.Pallet = t.PalletLen(i)
		rep.Columns = append(rep.Columns, cr)
	}
	return rep
}

func flagNames(f wdc2.Flags) []string {
	var out []string
	if f.Has(wdc2.FlagSparse) {
		out = append(out, "sparse")
	}
	if f.Has(wdc2.FlagSecondaryIndex) {
		out = append(out, "secondary_index")
	}
	if f.Has(wdc2.FlagIndexMap) {
		out = append(out, "index_map")
	}
	return out
}

func writeReport(w io.Writer, rep inspectReport) error {
	h, s := rep.Header, rep.Section
	flags := strings.Join(rep.Flags, ", ")
	if flags == "" {
		flags = "none"
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "table:\t%s\n", rep.Name)
	fmt.Fprintf(tw, "file:\t%s\n", rep.Path)
	fmt.Fprintf(tw, "table hash:\t%08X\n", h.TableHash)
	fmt.Fprintf(tw, "layout hash:\t%08X\n", h.LayoutHash)
	fmt.Fprintf(tw, "locale:\t%d\n", h.Locale)
	fmt.Fprintf(tw, "flags:\t0x%04X (%s)\n", uint16(h.Flags), flags)
	fmt.Fprintf(tw, "ids:\t%d..%d (id field %d)\n", h.MinID, h.MaxID, h.IDFieldIndex)
	fmt.Fprintf(tw, "records:\t%d physical, %d rows, %d copies\n", h.RecordCount, rep.Rows, rep.Copies)
	fmt.Fprintf(tw, "record size:\t%d bytes\n", h.RecordSize)
	fmt.Fprintf(tw, "strings:\t%d\n", rep.Strings)
	fmt.Fprintf(tw, "sparse entries:\t%d\n", rep.Sparse)
	fmt.Fprintf(tw, "references:\t%d\n", rep.References)
	fmt.Fprintf(tw, "section:\toffset %d, %d records, index %d B, copy %d B, parent %d B\n",
		s.FileOffset, s.NumRecords, s.IndexDataSize, s.CopyTableSize, s.ParentLookupDataSize)
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tTYPE\tCOMPRESSION\tOFFSET\tSIZE\tWIDTH\tEXTRA")
	for _, c := range rep.Columns {
		extra := ""
		switch {
		case c.Cardinality > 0:
			extra = fmt.Sprintf("cardinality=%d pallet=%d", c.Cardinality, c.Pallet)
		case c.Pallet > 0:
			extra = fmt.Sprintf("pallet=%d", c.Pallet)
		case c.Compression == wdc2.CompressionCommon.String():
			extra = fmt.Sprintf("default=%d overrides=%d", c.Default, c.Common)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			c.Index, c.Name, c.Type, c.Compression, c.RecordOffset, c.Size, c.BitWidth, extra)
	}
	return tw.Flush()
}
