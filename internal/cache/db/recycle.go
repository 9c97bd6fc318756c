// Package db holds the storage behind the recycle tier of a keyed cache.
package db

import "container/list"

// Slot is one retired value together with the moment it was retired (unix nano).
type Slot[K comparable, V any] struct {
	Key K
	Val V
	At  int64
}

// Recycle is an LRU-ordered map of retired values. The front of the list is the
// most recently retired slot, the back is the next eviction victim.
// Recycle is not safe for concurrent use: the owning cache serializes every call
// together with its live tier.
type Recycle[K comparable, V any] struct {
	capacity int // <= 0 means unbounded
	lru      *list.List
	lidx     map[K]*list.Element
}

func NewRecycle[K comparable, V any](capacity int) *Recycle[K, V] {
	return &Recycle[K, V]{
		capacity: capacity,
		lru:      list.New(),
		lidx:     make(map[K]*list.Element),
	}
}

func (r *Recycle[K, V]) Len() int      { return r.lru.Len() }
func (r *Recycle[K, V]) Capacity() int { return r.capacity }

// Put retires val under key, replacing any previous occupant, and evicts from the
// tail while over capacity. Every slot that left the tier is returned.
func (r *Recycle[K, V]) Put(key K, val V, at int64) (dropped []Slot[K, V]) {
	if el, ok := r.lidx[key]; ok {
		prev := el.Value.(*Slot[K, V])
		dropped = append(dropped, *prev)
		prev.Val, prev.At = val, at
		r.lru.MoveToFront(el)
	} else {
		r.lidx[key] = r.lru.PushFront(&Slot[K, V]{Key: key, Val: val, At: at})
	}

	for r.capacity > 0 && r.lru.Len() > r.capacity {
		victim, _ := r.popTail()
		dropped = append(dropped, victim)
	}
	return dropped
}

// Peek reads a slot without changing its position.
func (r *Recycle[K, V]) Peek(key K) (val V, ok bool) {
	el, ok := r.lidx[key]
	if !ok {
		return val, false
	}
	return el.Value.(*Slot[K, V]).Val, true
}

// Take removes and returns the value retired under key.
func (r *Recycle[K, V]) Take(key K) (val V, ok bool) {
	el, ok := r.lidx[key]
	if !ok {
		return val, false
	}
	r.lru.Remove(el)
	delete(r.lidx, key)
	return el.Value.(*Slot[K, V]).Val, true
}

func (r *Recycle[K, V]) Remove(key K) bool {
	_, ok := r.Take(key)
	return ok
}

// Oldest returns the next eviction victim without removing it.
func (r *Recycle[K, V]) Oldest() (Slot[K, V], bool) {
	el := r.lru.Back()
	if el == nil {
		return Slot[K, V]{}, false
	}
	return *el.Value.(*Slot[K, V]), true
}

// PurgeOlderThan drops slots retired before deadline, walking from the tail.
func (r *Recycle[K, V]) PurgeOlderThan(deadline int64) (purged []Slot[K, V]) {
	for el := r.lru.Back(); el != nil; el = r.lru.Back() {
		if el.Value.(*Slot[K, V]).At >= deadline {
			return purged
		}
		victim, _ := r.popTail()
		purged = append(purged, victim)
	}
	return purged
}

// Walk visits slots from the most to the least recently retired until fn returns false.
func (r *Recycle[K, V]) Walk(fn func(Slot[K, V]) bool) {
	for el := r.lru.Front(); el != nil; el = el.Next() {
		if !fn(*el.Value.(*Slot[K, V])) {
			return
		}
	}
}

// Clear drops every slot and returns them.
func (r *Recycle[K, V]) Clear() (dropped []Slot[K, V]) {
	dropped = make([]Slot[K, V], 0, r.lru.Len())
	for el := r.lru.Front(); el != nil; el = el.Next() {
		dropped = append(dropped, *el.Value.(*Slot[K, V]))
	}
	r.lru.Init()
	clear(r.lidx)
	return dropped
}

func (r *Recycle[K, V]) popTail() (Slot[K, V], bool) {
	el := r.lru.Back()
	if el == nil {
		return Slot[K, V]{}, false
	}
	s := el.Value.(*Slot[K, V])
	r.lru.Remove(el)
	delete(r.lidx, s.Key)
	return *s, true
}
