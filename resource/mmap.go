// SPDX-License-Identifier: MIT

package resource

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/edsrzf/mmap-go"
)

const opOpen = "Open"

// mapping keeps the mapped region alive until the Reader is closed.
type mapping struct {
	m mmap.MMap
}

func (mp *mapping) Close() error { return mp.m.Unmap() }

// Open maps the file at path read-only and returns a Reader over it.
// The mapping is released by Reader.Close.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opOpen, err)
	}
	defer f.Close()

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", opOpen, path, err)
	}
	rd, err := NewReader(bytes.NewReader(m), int64(len(m)))
	if err != nil {
		_ = m.Unmap()

		return nil, fmt.Errorf("%s: %s: %w", opOpen, path, err)
	}
	rd.closer = &mapping{m: m}

	return rd, nil
}

// Path is the conventional location of the resource file for nside:
// <root>/rev<FormatVersion>/<nside>.dat.
func Path(root string, nside int) string {
	return filepath.Join(root, "rev"+strconv.Itoa(FormatVersion), strconv.Itoa(nside)+".dat")
}

// QueryFile reads only the header of the file at path.
func QueryFile(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, fmt.Errorf("QueryFile: %w", err)
	}
	defer f.Close()

	buf := make([]byte, HeaderSize)
	if _, err = f.ReadAt(buf, 0); err != nil {
		return Header{}, fmt.Errorf("QueryFile: %s: %w", path, err)
	}
	h, err := decodeHeader(buf)
	if err != nil {
		return Header{}, fmt.Errorf("QueryFile: %s: %w", path, err)
	}

	return h, nil
}
