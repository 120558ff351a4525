package hoststore

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	collect "github.com/vireo-lang/collections"
	"github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"
)

var swapBucket = []byte("collect.swap")

// Options configures OpenBoltStoreFile, mirroring the teacher's
// edb.Options (db.go): IsTesting trades durability for speed the same
// way edb.Open does (NoSync, a small initial mmap), Logf routes
// swap-load diagnostics into the caller's logger.
type Options struct {
	Logf      func(format string, args ...any)
	Verbose   bool
	IsTesting bool
	MmapSize  int
}

// OpenBoltStoreFile opens (creating if needed) a bbolt file at path and
// wraps it in a BoltStore, following edb.Open's bbolt.Options tuning.
func OpenBoltStoreFile(path string, log *SwapLog, opt Options) (*BoltStore, error) {
	bopt := *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
		bopt.InitialMmapSize = 1024 * 1024 * 5
	} else {
		bopt.InitialMmapSize = 1024 * 1024 * 1024
		bopt.FreelistType = bbolt.FreelistMapType
	}
	if opt.MmapSize != 0 {
		bopt.InitialMmapSize = opt.MmapSize
	}

	db, err := bbolt.Open(path, 0o600, &bopt)
	if err != nil {
		return nil, err
	}
	s, err := OpenBoltStore(db, log)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.logf = opt.Logf
	if s.logf == nil {
		s.logf = func(string, ...any) {}
	}
	return s, nil
}

// BoltStore is a collect.Host backed by bbolt, grounded on the
// teacher's boltStorage (storage_bolt.go): a thin wrapper that
// delegates everything to the library rather than reimplementing
// storage. Object-layer bookkeeping is inherited unchanged from
// MemStore; what BoltStore adds is a genuine demand-load path for
// collections whose element buffer has been swapped out cold.
type BoltStore struct {
	*MemStore

	db   *bbolt.DB
	log  *SwapLog
	logf func(format string, args ...any)

	mu      sync.Mutex
	nextKey uint64
	keys    map[*collect.Collection]uint64
}

// OpenBoltStore wraps an already-open *bbolt.DB. log is optional; pass
// nil to skip swap-commit journaling.
func OpenBoltStore(db *bbolt.DB, log *SwapLog) (*BoltStore, error) {
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(swapBucket)
		return err
	}); err != nil {
		return nil, err
	}
	return &BoltStore{
		MemStore: NewMemStore(),
		db:       db,
		log:      log,
		logf:     func(string, ...any) {},
		keys:     make(map[*collect.Collection]uint64),
	}, nil
}

// SwapOut msgpack-encodes c's element buffer into bbolt and drops it
// from memory; the next GetElts call demand-loads it back (spec.md
// §6's get_elts). Only leaf collections — no element holding a nested
// collection handle — can be swapped: a handle has no identity once
// its pointee collection is no longer resident (see DESIGN.md).
func (s *BoltStore) SwapOut(c *collect.Collection) error {
	for _, v := range c.Elts {
		if v.Kind == collect.KindArray || v.Kind == collect.KindMapping || v.Kind == collect.KindLightWeight {
			return fmt.Errorf("hoststore: cannot swap out a collection holding nested collection handles")
		}
	}

	data, err := encodeValues(c.Elts)
	if err != nil {
		return err
	}

	s.mu.Lock()
	key, ok := s.keys[c]
	if !ok {
		key = s.nextKey
		s.nextKey++
		s.keys[c] = key
	}
	s.mu.Unlock()

	if s.log != nil {
		if err := s.log.Record(key, c.Elts); err != nil {
			return err
		}
	}

	if err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(swapBucket).Put(keyBytes(key), data)
	}); err != nil {
		return err
	}

	s.logf("hoststore: swapped out collection (key=%d, %d elements)", key, len(c.Elts))
	c.Elts = nil
	return nil
}

// GetElts returns c's resident buffer, demand-loading it from bbolt
// first if it was previously swapped out.
func (s *BoltStore) GetElts(c *collect.Collection) ([]collect.Value, error) {
	if c.Elts != nil || c.Size == 0 {
		return c.Elts, nil
	}

	s.mu.Lock()
	key, ok := s.keys[c]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}

	var data []byte
	if err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(swapBucket).Get(keyBytes(key))
		if v == nil {
			return fmt.Errorf("hoststore: swap key %d not found", key)
		}
		data = append([]byte(nil), v...)
		return nil
	}); err != nil {
		return nil, err
	}

	elts, err := decodeValues(data)
	if err != nil {
		return nil, err
	}
	c.Elts = elts

	s.mu.Lock()
	delete(s.keys, c)
	s.mu.Unlock()
	if err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(swapBucket).Delete(keyBytes(key))
	}); err != nil {
		return nil, err
	}

	s.logf("hoststore: demand-loaded collection (key=%d, %d elements)", key, len(elts))
	return elts, nil
}

func keyBytes(k uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, k)
	return b
}

// wireValue is the msgpack-encoded form of a swapped-out Value. Only
// scalar kinds round-trip (see SwapOut); a decoded String gets a fresh
// InternedString rather than its original interned identity, since
// re-interning through the (out-of-scope) Strings collaborator is not
// this store's job.
type wireValue struct {
	Kind     uint8  `msgpack:"k"`
	Int      int32  `msgpack:"i,omitempty"`
	FHigh    uint16 `msgpack:"fh,omitempty"`
	FLow     uint16 `msgpack:"fl,omitempty"`
	Str      string `msgpack:"s,omitempty"`
	ObjIndex int32  `msgpack:"oi,omitempty"`
	ObjCount uint32 `msgpack:"oc,omitempty"`
}

func encodeValues(vs []collect.Value) ([]byte, error) {
	wire := make([]wireValue, len(vs))
	for i, v := range vs {
		w := wireValue{Kind: uint8(v.Kind)}
		switch v.Kind {
		case collect.KindInt:
			w.Int = v.Int
		case collect.KindFloat:
			w.FHigh, w.FLow = v.Float.High, v.Float.Low
		case collect.KindString:
			if v.Str != nil {
				w.Str = v.Str.Text
			}
		case collect.KindObject:
			w.ObjIndex, w.ObjCount = v.Obj.Index, v.Obj.Count
		}
		wire[i] = w
	}
	return msgpack.Marshal(wire)
}

func decodeValues(data []byte) ([]collect.Value, error) {
	var wire []wireValue
	if err := msgpack.Unmarshal(data, &wire); err != nil {
		return nil, err
	}
	out := make([]collect.Value, len(wire))
	for i, w := range wire {
		switch collect.Kind(w.Kind) {
		case collect.KindNil:
			out[i] = collect.Nil
		case collect.KindInt:
			out[i] = collect.IntValue(w.Int)
		case collect.KindFloat:
			out[i] = collect.FloatVal(collect.FloatValue{High: w.FHigh, Low: w.FLow})
		case collect.KindString:
			out[i] = collect.StringValue(&collect.InternedString{Text: w.Str})
		case collect.KindObject:
			out[i] = collect.ObjectValue(collect.ObjectRef{Index: w.ObjIndex, Count: w.ObjCount})
		default:
			return nil, fmt.Errorf("hoststore: cannot decode a collection-kind value from swap storage")
		}
	}
	return out, nil
}
