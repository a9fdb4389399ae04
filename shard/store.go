// SPDX-License-Identifier: MIT

package shard

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/katalvlaran/wavemoth/resource"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go.uber.org/zap"
)

const (
	attrsPrefix = "/attrs/"
	dataPrefix  = "/data/"
)

// Attrs describes one stored matrix.
type Attrs struct {
	Lmax               int   `json:"lmax"`
	M                  int   `json:"m"`
	Odd                bool  `json:"odd"`
	Nside              int   `json:"Nside"`
	CombinedMatrixSize int64 `json:"combined_matrix_size"`
}

// Key is the resource key the attributes belong to.
func (a Attrs) Key() resource.Key { return resource.Key{M: a.M, Odd: a.Odd} }

// Store is a worker shard. It is safe for concurrent use.
type Store struct {
	db    *leveldb.DB
	dir   string
	codec Codec
	pc    *payloadCodec
	log   *zap.Logger
}

// Open opens or creates the shard in dir.
func Open(dir string, opts ...Option) (*Store, error) {
	o := gatherOptions(opts)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("shard: open %s: %w", dir, err)
	}
	db, err := leveldb.OpenFile(dir, &opt.Options{
		Compression: opt.NoCompression,
		Filter:      filter.NewBloomFilter(10),
	})
	if err != nil {
		return nil, fmt.Errorf("shard: open %s: %w", dir, err)
	}
	pc, err := newPayloadCodec()
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("shard: open %s: %w", dir, err)
	}
	o.Logger.Debug("shard opened", zap.String("dir", dir), zap.Stringer("codec", o.Codec))

	return &Store{db: db, dir: dir, codec: o.Codec, pc: pc, log: o.Logger}, nil
}

// Dir is the database directory.
func (s *Store) Dir() string { return s.dir }

func recordKey(prefix string, k resource.Key) []byte {
	odd := 0
	if k.Odd {
		odd = 1
	}

	return []byte(prefix + strconv.Itoa(k.M) + "/" + strconv.Itoa(odd))
}

func parseKey(prefix string, raw []byte) (resource.Key, error) {
	parts := strings.Split(strings.TrimPrefix(string(raw), prefix), "/")
	if len(parts) != 2 {
		return resource.Key{}, fmt.Errorf("key %q: %w", raw, ErrCorrupt)
	}
	m, err := strconv.Atoi(parts[0])
	if err != nil || m < 0 || (parts[1] != "0" && parts[1] != "1") {
		return resource.Key{}, fmt.Errorf("key %q: %w", raw, ErrCorrupt)
	}

	return resource.Key{M: m, Odd: parts[1] == "1"}, nil
}

// Put stores attrs and payload for attrs.Key() in one synced batch,
// replacing any previous record.
func (s *Store) Put(attrs Attrs, payload []byte) error {
	meta, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("shard: put %v: %w", attrs.Key(), err)
	}
	stored, err := s.pc.encode(s.codec, payload)
	if err != nil {
		return fmt.Errorf("shard: put %v: %w", attrs.Key(), err)
	}
	b := new(leveldb.Batch)
	b.Put(recordKey(attrsPrefix, attrs.Key()), meta)
	b.Put(recordKey(dataPrefix, attrs.Key()), stored)
	if err = s.db.Write(b, &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("shard: put %v: %w", attrs.Key(), err)
	}
	s.log.Debug("shard put",
		zap.Stringer("key", attrs.Key()),
		zap.String("payload", humanize.Bytes(uint64(len(payload)))),
		zap.String("stored", humanize.Bytes(uint64(len(stored)))))

	return nil
}

// Attrs returns the attribute record of k without touching its payload.
func (s *Store) Attrs(k resource.Key) (Attrs, error) {
	meta, err := s.db.Get(recordKey(attrsPrefix, k), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return Attrs{}, fmt.Errorf("shard: %v: %w", k, ErrNotFound)
	}
	if err != nil {
		return Attrs{}, fmt.Errorf("shard: %v: %w", k, err)
	}
	var a Attrs
	if err = json.Unmarshal(meta, &a); err != nil {
		return Attrs{}, fmt.Errorf("shard: %v: %v: %w", k, err, ErrCorrupt)
	}

	return a, nil
}

// Get returns the attributes and the decoded payload of k.
//
// Errors:
//   - ErrNotFound if k was never stored.
//   - ErrCorrupt if either record cannot be decoded or the data record is missing.
func (s *Store) Get(k resource.Key) (Attrs, []byte, error) {
	a, err := s.Attrs(k)
	if err != nil {
		return Attrs{}, nil, err
	}
	stored, err := s.db.Get(recordKey(dataPrefix, k), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return Attrs{}, nil, fmt.Errorf("shard: %v: data record missing: %w", k, ErrCorrupt)
	}
	if err != nil {
		return Attrs{}, nil, fmt.Errorf("shard: %v: %w", k, err)
	}
	payload, err := s.pc.decode(stored)
	if err != nil {
		return Attrs{}, nil, fmt.Errorf("shard: %v: %w", k, err)
	}

	return a, payload, nil
}

// Keys lists the stored keys in resource order.
func (s *Store) Keys() ([]resource.Key, error) {
	it := s.db.NewIterator(util.BytesPrefix([]byte(attrsPrefix)), nil)
	defer it.Release()

	var keys []resource.Key
	for it.Next() {
		k, err := parseKey(attrsPrefix, it.Key())
		if err != nil {
			return nil, fmt.Errorf("shard: %s: %w", s.dir, err)
		}
		keys = append(keys, k)
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("shard: %s: %w", s.dir, err)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	return keys, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	s.pc.close()
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("shard: close %s: %w", s.dir, err)
	}
	s.log.Debug("shard closed", zap.String("dir", s.dir))

	return nil
}
