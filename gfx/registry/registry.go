// Package registry provides generation-counted arenas that hand out stable,
// dangling-safe handles to dynamically created resources (meshes, materials,
// model definitions, model instances). A handle stays valid until its slot is
// explicitly recycled; dereferencing a recycled handle is detected and
// rejected instead of silently returning stale data.
package registry

import "fmt"

// Handle is a stable reference into a Registry. It carries the arena slot
// index plus the generation the slot had when the value was emplaced. Handles
// are small value types and safe to copy freely.
type Handle[T any] struct {
	index      uint32
	generation uint32
}

// Valid reports whether the handle has ever been issued by a registry.
// The zero Handle is never valid (generations start at 1).
//
// Returns:
//   - bool: true if the handle was issued by a registry
func (h Handle[T]) Valid() bool {
	return h.generation != 0
}

// String formats the handle for diagnostics.
//
// Returns:
//   - string: "index@generation"
func (h Handle[T]) String() string {
	return fmt.Sprintf("%d@%d", h.index, h.generation)
}

// slot is one arena entry. A slot is live when it holds a value whose
// emplacement generation equals the slot's current generation.
type slot[T any] struct {
	value      T
	generation uint32
	live       bool
}

// Registry is a generation-counted arena for values of type T.
//
// Accessed from the single rendering path; not safe for concurrent use.
type Registry[T any] struct {
	slots []slot[T]
	free  []uint32
	count int
}

// New creates an empty Registry.
//
// Returns:
//   - *Registry[T]: a new empty registry
func New[T any]() *Registry[T] {
	return &Registry[T]{}
}

// Emplace stores a value in a free (or newly appended) arena slot and returns
// a handle carrying the slot's current generation.
//
// Parameters:
//   - value: the value to store
//
// Returns:
//   - Handle[T]: a handle referencing the stored value
func (r *Registry[T]) Emplace(value T) Handle[T] {
	var index uint32
	if n := len(r.free); n > 0 {
		index = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		index = uint32(len(r.slots))
		r.slots = append(r.slots, slot[T]{})
	}

	s := &r.slots[index]
	s.generation++
	s.value = value
	s.live = true
	r.count++

	return Handle[T]{index: index, generation: s.generation}
}

// Get resolves a handle to a pointer at the stored value. Resolving a handle
// whose generation no longer matches the slot's live generation is a usage
// error; the caller must treat it as fatal.
//
// Parameters:
//   - h: the handle to resolve
//
// Returns:
//   - *T: pointer to the stored value
//   - error: an error if the handle is stale, unissued, or out of range
func (r *Registry[T]) Get(h Handle[T]) (*T, error) {
	if h.generation == 0 {
		return nil, fmt.Errorf("registry: zero handle dereferenced")
	}
	if int(h.index) >= len(r.slots) {
		return nil, fmt.Errorf("registry: handle %s out of range (%d slots)", h, len(r.slots))
	}
	s := &r.slots[h.index]
	if !s.live || s.generation != h.generation {
		return nil, fmt.Errorf("registry: stale handle %s (slot generation %d)", h, s.generation)
	}
	return &s.value, nil
}

// Remove destroys the value referenced by the handle and recycles its slot.
// The slot's generation is bumped so any outstanding handles to it become
// stale without notification.
//
// Parameters:
//   - h: the handle to recycle
//
// Returns:
//   - error: an error if the handle is already stale
func (r *Registry[T]) Remove(h Handle[T]) error {
	if _, err := r.Get(h); err != nil {
		return err
	}
	s := &r.slots[h.index]
	var zero T
	s.value = zero
	s.generation++
	s.live = false
	r.free = append(r.free, h.index)
	r.count--
	return nil
}

// Clear destroys all stored values and invalidates every outstanding handle
// by bumping each slot's generation. Slots are recycled through the free list.
func (r *Registry[T]) Clear() {
	var zero T
	r.free = r.free[:0]
	for i := range r.slots {
		s := &r.slots[i]
		if s.live {
			s.value = zero
			s.generation++
			s.live = false
		}
		r.free = append(r.free, uint32(i))
	}
	r.count = 0
}

// Len returns the number of live values in the registry.
//
// Returns:
//   - int: the live value count
func (r *Registry[T]) Len() int {
	return r.count
}

// Each calls fn for every live value. fn must not add or remove entries.
//
// Parameters:
//   - fn: the callback invoked with each live value
func (r *Registry[T]) Each(fn func(*T)) {
	for i := range r.slots {
		if r.slots[i].live {
			fn(&r.slots[i].value)
		}
	}
}
