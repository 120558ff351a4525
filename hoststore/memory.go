// Package hoststore provides reference implementations of collect.Host
// — the narrow persistent-layer/object-layer contract spec.md §6
// names as out of scope for the collection core itself. MemStore is an
// ephemeral, everything-resident implementation for tests; BoltStore
// backs it with bbolt so a collection's element buffer can genuinely
// be swapped out cold and demand-loaded back in.
package hoststore

import (
	"fmt"
	"sync"

	collect "github.com/vireo-lang/collections"
)

// MemStore is a mutex-guarded, map-backed collect.Host, grounded on the
// teacher's memStorage (storage_mem.go): no persistence, no swap —
// every collection's buffer is always resident, every commit is a
// final commit (nothing ever forwards to a parent process), and the
// object layer it stands in for is just two maps.
type MemStore struct {
	mu sync.Mutex

	liveCount map[int32]uint32 // current update counter per live object index
	nvars     map[int32]int    // instance-variable count per object index
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		liveCount: make(map[int32]uint32),
		nvars:     make(map[int32]int),
	}
}

// RegisterObject declares obj as live with the given instance-variable
// count and initial update counter, as the (out-of-scope) object layer
// would on object creation or resurrection.
func (s *MemStore) RegisterObject(index int32, nvariables int, count uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liveCount[index] = count
	s.nvars[index] = nvariables
}

// DestroyObject bumps index's live update counter so every ObjectRef
// value already holding the old counter now reads as destructed.
func (s *MemStore) DestroyObject(index int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liveCount[index]++
}

func (s *MemStore) GetElts(c *collect.Collection) ([]collect.Value, error) {
	return c.Elts, nil
}

func (s *MemStore) AssignElt(ds *collect.Dataspace, c *collect.Collection, slot *collect.Value, newValue collect.Value) {
	*slot = newValue
}

func (s *MemStore) ChangeMap(c *collect.Collection) {}

func (s *MemStore) RefImports(c *collect.Collection) {}

// CommitArr never requests forwarding: MemStore has no parent process
// to forward a backup to, so every commit is final.
func (s *MemStore) CommitArr(c *collect.Collection, current, original *collect.Plane) bool {
	return false
}

func (s *MemStore) DiscardArr(c *collect.Collection, original *collect.Plane) {}

func (s *MemStore) ThisPlane(ds *collect.Dataspace, local *collect.PlaneLocal) bool {
	return local.Plane == ds.Plane
}

func (s *MemStore) SamePlane(a, b *collect.Dataspace) bool {
	return a.Plane == b.Plane
}

func (s *MemStore) Destructed(v collect.Value) bool {
	if v.Kind != collect.KindObject {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	live, ok := s.liveCount[v.Obj.Index]
	return !ok || live != v.Obj.Count
}

func (s *MemStore) NumVariables(obj collect.ObjectRef) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nvars[obj.Index]
	if !ok {
		return 0, fmt.Errorf("hoststore: object %d not registered", obj.Index)
	}
	return n, nil
}

func (s *MemStore) InitVariables(ds *collect.Dataspace, c *collect.Collection, obj collect.ObjectRef) error {
	for i := 2; i < len(c.Elts); i++ {
		c.Elts[i] = collect.Nil
	}
	return nil
}
