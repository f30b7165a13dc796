package ecs

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// BlockSize is the number of slots per storage chunk and per parallel work
// unit. Chunks never move once allocated, so pointers handed out by Create and
// Find stay valid for as long as the slot is live.
const BlockSize = 64

type slot[T any] struct {
	id   EntityID
	free atomic.Bool
	val  T
}

// Store is a slot arena with generational handles. Slots released during a
// tick go to per-worker free lists first and only become reusable after
// MergeFreed, which the owner calls once every worker has returned.
//
// Create, MergeFreed and Each run on the game loop goroutine. ParallelEach fans
// out to Workers() goroutines; the callback may call MarkErased with its own
// worker index and Find, but never Create.
type Store[T any] struct {
	chunks  [][]slot[T]
	size    int
	free    []uint32
	pending [][]uint32 // per worker, drained by MergeFreed
	workers int
}

func NewStore[T any](workers int) *Store[T] {
	if workers < 1 {
		workers = 1
	}
	return &Store[T]{
		free:    make([]uint32, 0, 256),
		pending: make([][]uint32, workers),
		workers: workers,
	}
}

func (s *Store[T]) Workers() int { return s.workers }

// Len returns the number of slots ever allocated, live or free.
func (s *Store[T]) Len() int { return s.size }

func (s *Store[T]) at(idx uint32) *slot[T] {
	return &s.chunks[idx/BlockSize][idx%BlockSize]
}

// Create claims a slot and returns its new id and value pointer. A recycled
// slot keeps whatever its previous occupant left in the value; callers reset it.
func (s *Store[T]) Create() (EntityID, *T) {
	if len(s.free) > 0 {
		idx := s.free[0]
		s.free = s.free[1:]
		sl := s.at(idx)
		if !sl.free.Load() {
			panic(fmt.Sprintf("ecs: slot %d on free list is live", idx))
		}
		sl.id = NewEntityID(idx, sl.id.Generation()+1)
		sl.free.Store(false)
		return sl.id, &sl.val
	}

	if s.size >= MaxSlots {
		panic("ecs: slot space exhausted")
	}
	idx := uint32(s.size)
	if idx%BlockSize == 0 {
		s.chunks = append(s.chunks, make([]slot[T], BlockSize))
	}
	s.size++
	sl := s.at(idx)
	sl.id = NewEntityID(idx, 0)
	return sl.id, &sl.val
}

// Find resolves id to its live value, or nil when the slot is out of range,
// free, or holds a different generation.
func (s *Store[T]) Find(id EntityID) *T {
	if id.IsZero() {
		return nil
	}
	idx := id.Index()
	if int(idx) >= s.size {
		return nil
	}
	sl := s.at(idx)
	if sl.free.Load() || sl.id != id {
		return nil
	}
	return &sl.val
}

// MarkErased flags the slot free and queues it on worker's private list.
// The slot is not handed out again until MergeFreed.
func (s *Store[T]) MarkErased(id EntityID, worker int) {
	idx := id.Index()
	if int(idx) >= s.size {
		panic(fmt.Sprintf("ecs: erase %s out of range", id))
	}
	sl := s.at(idx)
	if sl.id != id || sl.free.Load() {
		panic(fmt.Sprintf("ecs: erase of dead entity %s", id))
	}
	sl.free.Store(true)
	s.pending[worker] = append(s.pending[worker], idx)
}

// MergeFreed splices every worker's erase list into the shared free list.
func (s *Store[T]) MergeFreed() {
	for w, lst := range s.pending {
		s.free = append(s.free, lst...)
		s.pending[w] = lst[:0]
	}
}

// Each visits every live value in slot order.
func (s *Store[T]) Each(fn func(*T)) {
	s.eachIn(0, s.size, func(v *T, _ int) { fn(v) }, 0)
}

// ParallelEach visits every live value once. Workers claim whole blocks from a
// shared cursor, so no two workers ever touch the same block, and the call
// returns only after all of them are done.
func (s *Store[T]) ParallelEach(fn func(v *T, worker int)) {
	n := s.size
	if n <= BlockSize || s.workers == 1 {
		s.eachIn(0, n, fn, 0)
		return
	}

	var cursor atomic.Int64
	run := func(worker int) {
		for {
			base := int(cursor.Add(BlockSize)) - BlockSize
			if base >= n {
				return
			}
			s.eachIn(base, base+BlockSize, fn, worker)
		}
	}

	var g errgroup.Group
	for w := 1; w < s.workers; w++ {
		w := w
		g.Go(func() error {
			run(w)
			return nil
		})
	}
	run(0)
	_ = g.Wait()
}

func (s *Store[T]) eachIn(from, to int, fn func(*T, int), worker int) {
	if to > s.size {
		to = s.size
	}
	for i := from; i < to; i++ {
		sl := s.at(uint32(i))
		if !sl.free.Load() {
			fn(&sl.val, worker)
		}
	}
}
