// Package tablestore finds WDC2 files in a directory, loads them on demand
// and keeps them cached for readers.
package tablestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/samcharles93/db2kit/internal/layout"
	"github.com/samcharles93/db2kit/pkg/wdc2"
)

var (
	ErrTableNotFound = errors.New("tablestore: table not found")
	ErrRowNotFound   = errors.New("tablestore: row not found")
)

const (
	extDB2  = ".db2"
	extZstd = ".db2.zst"
)

// maxDecodedSize caps the decompressed size of a .db2.zst file.
const maxDecodedSize = 1 << 30

var zstdDecoder *zstd.Decoder

func init() {
	z, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(runtime.GOMAXPROCS(0)),
		zstd.WithDecoderMaxMemory(maxDecodedSize))
	if err != nil {
		panic(err)
	}
	zstdDecoder = z
}

// File is a table file found on disk.
type File struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	Size       int64  `json:"size"`
	Compressed bool   `json:"compressed"`
}

// Open loads a table from path. Plain files are memory mapped; .db2.zst
// files are decompressed in memory first.
func Open(path string) (*wdc2.Table, error) {
	if !isCompressed(path) {
		return wdc2.Open(path)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data, err := zstdDecoder.DecodeAll(src, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: zstd: %w", path, err)
	}
	return wdc2.Parse(data)
}

func isCompressed(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), extZstd)
}

func isTableFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, extDB2) || strings.HasSuffix(lower, extZstd)
}

// scanDir lists table files in dir sorted by name. When a table exists both
// plain and compressed, the plain file wins.
func scanDir(dir string) ([]File, error) {
	st, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("tables path is not a directory: %s", dir)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]File, len(ents))
	for _, e := range ents {
		if e.IsDir() || !isTableFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		f := File{
			Name:       layout.TableName(e.Name()),
			Path:       filepath.Join(dir, e.Name()),
			Size:       info.Size(),
			Compressed: isCompressed(e.Name()),
		}
		key := strings.ToLower(f.Name)
		if prev, ok := byName[key]; ok && !prev.Compressed {
			continue
		}
		byName[key] = f
	}
	out := make([]File, 0, len(byName))
	for _, f := range byName {
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b File) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}
