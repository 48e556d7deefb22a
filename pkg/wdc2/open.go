package wdc2

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// Open maps a WDC2 file read-only and parses it. If mmap is unavailable the
// file is read into memory instead. The mapping is released before Open
// returns; the Table holds its own copies of everything it needs.
func Open(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := st.Size()
	if size < minFileSize {
		return nil, fmt.Errorf("%w: %d byte file is shorter than the header", ErrInvalidMagic, size)
	}
	if size > int64(int(^uint(0)>>1)) {
		return nil, fmt.Errorf("%w: file too large", ErrFormat)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		t, parseErr := Parse(data)
		if unmapErr := unix.Munmap(data); parseErr == nil && unmapErr != nil {
			return nil, unmapErr
		}
		return t, parseErr
	}

	return OpenReaderAt(f, size)
}

// OpenReaderAt reads size bytes from r and parses them.
func OpenReaderAt(r io.ReaderAt, size int64) (*Table, error) {
	if size < 0 || size > int64(int(^uint(0)>>1)) {
		return nil, fmt.Errorf("%w: invalid size %d", ErrFormat, size)
	}
	buf := make([]byte, size)
	n, err := r.ReadAt(buf, 0)
	if err != nil && !(err == io.EOF && int64(n) == size) {
		return nil, err
	}
	return Parse(buf)
}

// Read consumes r to EOF and parses the result.
func Read(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}
