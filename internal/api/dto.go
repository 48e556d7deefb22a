package api

import (
	"time"

	"github.com/samcharles93/db2kit/internal/tablestore"
	"github.com/samcharles93/db2kit/pkg/wdc2"
)

type ResponseError struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type TableSummary struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	Compressed bool   `json:"compressed"`
	Loaded     bool   `json:"loaded"`
}

type TableList struct {
	Object string         `json:"object"`
	Data   []TableSummary `json:"data"`
}

type ColumnInfo struct {
	Index        int    `json:"index"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	ArraySize    int    `json:"array_size,omitempty"`
	Compression  string `json:"compression"`
	RecordOffset int    `json:"record_offset"`
	Size         int    `json:"size"`
}

type TableDetail struct {
	Name        string       `json:"name"`
	TableHash   string       `json:"table_hash"`
	LayoutHash  string       `json:"layout_hash"`
	Locale      int32        `json:"locale"`
	Flags       uint16       `json:"flags"`
	Sparse      bool         `json:"sparse"`
	MinID       int32        `json:"min_id"`
	MaxID       int32        `json:"max_id"`
	RecordCount int          `json:"record_count"`
	Rows        int          `json:"rows"`
	Copies      int          `json:"copies"`
	Named       bool         `json:"named"`
	LoadedAt    time.Time    `json:"loaded_at"`
	Columns     []ColumnInfo `json:"columns"`
}

type RowsResponse struct {
	Object string              `json:"object"`
	Table  string              `json:"table"`
	Offset int                 `json:"offset"`
	Limit  int                 `json:"limit"`
	Total  int                 `json:"total"`
	Data   []tablestore.Record `json:"data"`
}

func tableDetail(e *tablestore.Entry) TableDetail {
	t := e.Table
	h := t.Header()
	d := TableDetail{
		Name:        e.Name,
		TableHash:   hex32(h.TableHash),
		LayoutHash:  hex32(h.LayoutHash),
		Locale:      h.Locale,
		Flags:       uint16(h.Flags),
		Sparse:      h.Flags.Has(wdc2.FlagSparse),
		MinID:       h.MinID,
		MaxID:       h.MaxID,
		RecordCount: t.RecordCount(),
		Rows:        t.Len(),
		Copies:      len(t.CopyTable()),
		Named:       e.Named,
		LoadedAt:    e.LoadedAt.UTC(),
	}
	cols := t.Columns()
	for _, spec := range e.Specs {
		ci := ColumnInfo{
			Index:     spec.Index,
			Name:      tablestore.FieldName(spec),
			Type:      spec.Type.String(),
			ArraySize: spec.ArraySize,
		}
		if spec.Index < len(cols) {
			ci.Compression = cols[spec.Index].Compression.String()
			ci.RecordOffset = int(cols[spec.Index].RecordOffset)
			ci.Size = int(cols[spec.Index].Size)
		} else {
			ci.Compression = "reference"
		}
		d.Columns = append(d.Columns, ci)
	}
	return d
}
