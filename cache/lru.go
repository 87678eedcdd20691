// Copyright 2016-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cache

// This file provides a simple LRU cache.  Items are stored under an
// arbitrary string key, so one cache can hold several kinds of object
// under distinct key prefixes.

import (
	"container/list"
	"sync"
)

// lruEntry is one item in the eviction list.
type lruEntry struct {
	key   string
	value interface{}
}

// lru is a least-recently-used cache with a fixed capacity.  The cache
// can be safely accessed from multiple goroutines.
type lru struct {
	size      int
	lock      sync.RWMutex
	evictList *list.List
	index     map[string]*list.Element
}

func newLRU(size int) *lru {
	return &lru{
		size:      size,
		evictList: list.New(),
		index:     make(map[string]*list.Element),
	}
}

// Get retrieves an item from the cache.  If it is not present, calls
// the fetch function, and if that succeeds, saves the item and
// returns it.  This should return an error only if the item is not
// present and the fetch function returns an error.
func (lru *lru) Get(key string, fetch func() (interface{}, error)) (interface{}, error) {
	// This sadly happens under a writer lock, since we need to move
	// the item to the back of the list if it is present
	lru.lock.Lock()
	defer lru.lock.Unlock()

	if element, present := lru.index[key]; present {
		lru.evictList.MoveToBack(element)
		return element.Value.(*lruEntry).value, nil
	}

	value, err := fetch()
	if err != nil {
		return nil, err
	}
	lru.add(key, value)
	return value, nil
}

// Peek looks for an item in the cache and returns it if present.
// This runs under a reader lock, and so can run concurrently with
// itself but not calls to Put or Get.  This does not affect the
// recency of the item.
func (lru *lru) Peek(key string) (interface{}, bool) {
	lru.lock.RLock()
	defer lru.lock.RUnlock()

	if element, present := lru.index[key]; present {
		return element.Value.(*lruEntry).value, true
	}
	return nil, false
}

// Put adds an item to the LRU cache, possibly evicting something.
func (lru *lru) Put(key string, value interface{}) {
	lru.lock.Lock()
	defer lru.lock.Unlock()

	// Are we just updating an existing item?
	if element, present := lru.index[key]; present {
		element.Value.(*lruEntry).value = value
		lru.evictList.MoveToBack(element)
		return
	}

	lru.add(key, value)
}

// Remove takes an item out of the cache.  It does nothing if that key
// does not exist.
func (lru *lru) Remove(key string) {
	lru.lock.Lock()
	defer lru.lock.Unlock()

	if element, present := lru.index[key]; present {
		delete(lru.index, key)
		lru.evictList.Remove(element)
	}
}

// Len returns the number of items in the cache.
func (lru *lru) Len() int {
	lru.lock.RLock()
	defer lru.lock.RUnlock()
	return len(lru.index)
}

// add is an internal helper, running under the write lock, that adds a
// new item to the cache.  The item is known to not already exist.
func (lru *lru) add(key string, value interface{}) {
	element := lru.evictList.PushBack(&lruEntry{key: key, value: value})
	lru.index[key] = element

	// If this caused the cache to go over size, start evicting items
	for len(lru.index) > lru.size {
		head := lru.evictList.Front()
		delete(lru.index, head.Value.(*lruEntry).key)
		lru.evictList.Remove(head)
	}
}
