// SPDX-License-Identifier: MIT

package precompute

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/katalvlaran/wavemoth/resource"
	"github.com/katalvlaran/wavemoth/shard"
)

// slot maps a key to a dense bitmap position: 2m + odd.
func slot(k resource.Key) uint32 { return uint32(k.Index() / 2) }

func keyOf(s uint32) resource.Key { return resource.Key{M: int(s / 2), Odd: s%2 == 1} }

// owner is the shard chosen to supply one key.
type owner struct {
	store *shard.Store
	attrs shard.Attrs
}

// MergeStats summarizes a merge.
type MergeStats struct {
	Keys       int
	Duplicates int
	Bytes      int64
}

// Merge checks shards against h and writes the keyed file to out.
//
// Checks, all reported as ErrConsistency:
//   - every attribute record has h.Lmax, h.Nside and the m/odd of its key;
//   - no key lies outside 0 <= m <= h.Mmax;
//   - a key held by several shards has identical attributes and payload
//     bytes in each;
//   - every key of h is present.
//
// Nothing is written unless every check passes.
func Merge(ctx context.Context, h resource.Header, shards []*shard.Store, out io.WriteSeeker) (MergeStats, error) {
	var st MergeStats
	if err := h.Validate(); err != nil {
		return st, fmt.Errorf("precompute: merge: %w", err)
	}
	expected := roaring.New()
	expected.AddRange(0, uint64(2*(h.Mmax+1)))
	present := roaring.New()
	owners := make(map[uint32]owner, 2*(h.Mmax+1))

	var problems []error
	for _, s := range shards {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		keys, err := s.Keys()
		if err != nil {
			return st, fmt.Errorf("precompute: merge: %w", err)
		}
		for _, k := range keys {
			a, err := s.Attrs(k)
			if err != nil {
				return st, fmt.Errorf("precompute: merge: %w", err)
			}
			if err = checkAttrs(h, k, a); err != nil {
				problems = append(problems, fmt.Errorf("%s: %w", s.Dir(), err))

				continue
			}
			id := slot(k)
			if prev, ok := owners[id]; ok {
				st.Duplicates++
				if prev.attrs != a {
					problems = append(problems, fmt.Errorf("%v: %s has %+v, %s has %+v", k, prev.store.Dir(), prev.attrs, s.Dir(), a))

					continue
				}
				same, err := samePayload(k, prev.store, s)
				if err != nil {
					return st, fmt.Errorf("precompute: merge: %w", err)
				}
				if !same {
					problems = append(problems, fmt.Errorf("%v: %s and %s hold different payloads", k, prev.store.Dir(), s.Dir()))
				}

				continue
			}
			owners[id] = owner{store: s, attrs: a}
			present.Add(id)
		}
	}
	if missing := roaring.AndNot(expected, present); !missing.IsEmpty() {
		problems = append(problems, fmt.Errorf("missing %d keys: %s", missing.GetCardinality(), formatSlots(missing)))
	}
	if len(problems) > 0 {
		return st, fmt.Errorf("precompute: merge: %w: %w", ErrConsistency, errors.Join(problems...))
	}

	w, err := resource.NewWriter(out, h)
	if err != nil {
		return st, fmt.Errorf("precompute: merge: %w", err)
	}
	it := present.Iterator()
	for it.HasNext() {
		if err = ctx.Err(); err != nil {
			return st, err
		}
		id := it.Next()
		o := owners[id]
		_, payload, err := o.store.Get(keyOf(id))
		if err != nil {
			return st, fmt.Errorf("precompute: merge: %w", err)
		}
		if err = w.AddPayload(keyOf(id), o.attrs.CombinedMatrixSize, payload); err != nil {
			return st, fmt.Errorf("precompute: merge: %w", err)
		}
		st.Keys++
	}
	if err = w.Close(); err != nil {
		return st, fmt.Errorf("precompute: merge: %w", err)
	}
	end, err := out.Seek(0, io.SeekCurrent)
	if err != nil {
		return st, fmt.Errorf("precompute: merge: %w", err)
	}
	st.Bytes = end

	return st, nil
}

// samePayload compares the decoded payloads of k in a and b.
func samePayload(k resource.Key, a, b *shard.Store) (bool, error) {
	_, pa, err := a.Get(k)
	if err != nil {
		return false, err
	}
	_, pb, err := b.Get(k)
	if err != nil {
		return false, err
	}

	return bytes.Equal(pa, pb), nil
}

func checkAttrs(h resource.Header, k resource.Key, a shard.Attrs) error {
	switch {
	case a.Key() != k:
		return fmt.Errorf("record %v carries attributes of %v", k, a.Key())
	case !h.Contains(k):
		return fmt.Errorf("%v outside mmax=%d", k, h.Mmax)
	case a.Lmax != h.Lmax || a.Nside != h.Nside:
		return fmt.Errorf("%v has lmax=%d Nside=%d, want lmax=%d Nside=%d", k, a.Lmax, a.Nside, h.Lmax, h.Nside)
	case a.CombinedMatrixSize < 0:
		return fmt.Errorf("%v has negative combined size %d", k, a.CombinedMatrixSize)
	}

	return nil
}

// formatSlots renders at most eight keys of bm.
func formatSlots(bm *roaring.Bitmap) string {
	const limit = 8
	var parts []string
	it := bm.Iterator()
	for it.HasNext() && len(parts) < limit {
		parts = append(parts, keyOf(it.Next()).String())
	}
	if bm.GetCardinality() > limit {
		parts = append(parts, "...")
	}

	return strings.Join(parts, ", ")
}
