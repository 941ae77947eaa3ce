package lambda

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxIdle is how long a container may sit unused before the next
// invocation rebuilds it
const DefaultMaxIdle = 5 * time.Minute

// ContainerFactory builds the dependencies shared by warm invocations
type ContainerFactory[C any] func(ctx context.Context) (C, error)

// ConnectionManager builds a container once per Lambda execution environment
// and hands it to every warm invocation. A container idle for longer than
// maxIdle is closed and rebuilt on the next request.
type ConnectionManager[C any] struct {
	factory     ContainerFactory[C]
	closer      func(C) error
	maxIdle     time.Duration
	container   C
	lastUsed    time.Time
	initialized bool
	mu          sync.RWMutex
}

// NewConnectionManager creates a manager around factory. closer releases a
// container that is dropped and may be nil.
func NewConnectionManager[C any](factory ContainerFactory[C], closer func(C) error) *ConnectionManager[C] {
	return &ConnectionManager[C]{
		factory: factory,
		closer:  closer,
		maxIdle: DefaultMaxIdle,
	}
}

// GetContainer returns the container, building it on first use and rebuilding
// it once stale. A failed build is retried by the next call.
func (cm *ConnectionManager[C]) GetContainer(ctx context.Context) (C, error) {
	cm.mu.RLock()
	if cm.fresh() {
		container := cm.container
		cm.mu.RUnlock()
		cm.UpdateLastUsed()
		return container, nil
	}
	cm.mu.RUnlock()

	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.initialized && !cm.fresh() {
		// the stale container is dropped even when closing it fails
		_ = cm.release()
	}

	if !cm.initialized {
		container, err := cm.factory(ctx)
		if err != nil {
			var zero C
			return zero, err
		}
		cm.container = container
		cm.initialized = true
	}

	cm.lastUsed = time.Now()
	return cm.container, nil
}

// IsHealthy checks if the container is built and was used recently
func (cm *ConnectionManager[C]) IsHealthy() bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.fresh()
}

// Cleanup closes and drops the container
func (cm *ConnectionManager[C]) Cleanup() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.release()
}

// UpdateLastUsed updates the last used timestamp
func (cm *ConnectionManager[C]) UpdateLastUsed() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.lastUsed = time.Now()
}

// fresh must be called with mu held
func (cm *ConnectionManager[C]) fresh() bool {
	return cm.initialized && time.Since(cm.lastUsed) < cm.maxIdle
}

// release must be called with mu held for writing
func (cm *ConnectionManager[C]) release() error {
	var err error
	if cm.initialized && cm.closer != nil {
		err = cm.closer(cm.container)
	}

	var zero C
	cm.container = zero
	cm.initialized = false
	return err
}
