// Package lock provides per-user locking so concurrent plays by the same
// user cannot interleave their point and experience updates. Keys are the
// user's external Kakao ID.
package lock

import "sync"

// UserLock provides per-user mutual exclusion. Locks for different users
// are independent; operations on distinct keys proceed fully in parallel.
type UserLock struct {
	locks sync.Map // map[string]*sync.Mutex
	pool  sync.Pool
}

// NewUserLock creates a new UserLock instance.
func NewUserLock() *UserLock {
	return &UserLock{
		pool: sync.Pool{
			New: func() any {
				return &sync.Mutex{}
			},
		},
	}
}

// getLock retrieves or creates the mutex for the given key.
func (ul *UserLock) getLock(key string) *sync.Mutex {
	if v, ok := ul.locks.Load(key); ok {
		return v.(*sync.Mutex)
	}

	newLock := ul.pool.Get().(*sync.Mutex)
	actual, loaded := ul.locks.LoadOrStore(key, newLock)
	if loaded {
		// Another goroutine stored first, return ours to the pool
		ul.pool.Put(newLock)
	}
	return actual.(*sync.Mutex)
}

// Lock acquires the lock for a user key.
func (ul *UserLock) Lock(key string) {
	ul.getLock(key).Lock()
}

// Unlock releases the lock for a user key.
func (ul *UserLock) Unlock(key string) {
	if v, ok := ul.locks.Load(key); ok {
		v.(*sync.Mutex).Unlock()
	}
}

// TryLock attempts to acquire the lock without blocking.
func (ul *UserLock) TryLock(key string) bool {
	return ul.getLock(key).TryLock()
}

// WithLock executes fn while holding the user's lock.
func (ul *UserLock) WithLock(key string, fn func() error) error {
	ul.Lock(key)
	defer ul.Unlock(key)
	return fn()
}
