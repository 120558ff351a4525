package hoststore

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	collect "github.com/vireo-lang/collections"
	"github.com/cespare/xxhash/v2"
)

// SwapLog is an append-only trail of element-buffer swap-outs. It
// borrows the teacher's journal package's central idea — a flat file
// of length-fixed, checksummed records, written before the real data
// lands so a crash between the two leaves a detectable trace on
// reopen — but sized to exactly what a swap log needs: one record per
// SwapOut call, no segment rotation (a swap log's working set is
// however many collections are cold at once, nowhere near a primary
// WAL's volume) and no generic byte-blob payload. What each record
// records is the *shape* of what was swapped out — a per-Kind tally of
// the buffer's elements — since the bytes themselves go to bbolt,
// which SwapOut writes right after Record returns.
type SwapLog struct {
	mu sync.Mutex
	f  *os.File
}

// OpenSwapLog opens (creating if needed) the swap log file under dir.
func OpenSwapLog(dir string) (*SwapLog, error) {
	f, err := os.OpenFile(filepath.Join(dir, "swap.log"), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("hoststore: open swap log: %w", err)
	}
	return &SwapLog{f: f}, nil
}

// kindTally counts how many of a swapped-out buffer's elements were
// each collect.Kind, indexed by Kind's own ordinal (Nil..LightWeight).
type kindTally [8]uint32

func tally(elts []collect.Value) kindTally {
	var t kindTally
	for _, v := range elts {
		t[v.Kind]++
	}
	return t
}

// recordSize is key:uint64 + kindTally (8 x uint32) + checksum:uint64.
const recordSize = 8 + 8*4 + 8

// Record appends one swap-out event: the bbolt key the buffer now
// lives under, and a tally of the Kinds it held when swapped.
func (l *SwapLog) Record(key uint64, elts []collect.Value) error {
	t := tally(elts)

	var buf [recordSize]byte
	binary.LittleEndian.PutUint64(buf[0:8], key)
	for i, n := range t {
		off := 8 + i*4
		binary.LittleEndian.PutUint32(buf[off:off+4], n)
	}
	sum := xxhash.Sum64(buf[:recordSize-8])
	binary.LittleEndian.PutUint64(buf[recordSize-8:], sum)

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.f.Write(buf[:]); err != nil {
		return fmt.Errorf("hoststore: swap log write: %w", err)
	}
	return l.f.Sync()
}

// Close flushes and releases the log file.
func (l *SwapLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}
