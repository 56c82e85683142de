// Package di provides a minimal service container with typed tokens.
package di

import (
	"fmt"
	"sync"
)

// ServiceRegistry allows read access to registered services.
type ServiceRegistry interface {
	Get(name string) any
	Has(name string) bool
}

// Container allows registering services in addition to reading them.
type Container interface {
	ServiceRegistry
	Register(name string, svc any)
}

// container is the default implementation.
type container struct {
	mu       sync.RWMutex
	services map[string]any
	lazies   map[string]func(ServiceRegistry) any
}

// NewContainer creates an empty container.
func NewContainer() Container {
	return &container{
		services: make(map[string]any),
		lazies:   make(map[string]func(ServiceRegistry) any),
	}
}

func (c *container) Register(name string, svc any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[name] = svc
}

func (c *container) registerLazy(name string, factory func(ServiceRegistry) any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lazies[name] = factory
}

func (c *container) Get(name string) any {
	c.mu.RLock()
	svc, ok := c.services[name]
	c.mu.RUnlock()
	if ok {
		return svc
	}

	c.mu.Lock()
	// Re-check after acquiring the write lock.
	if svc, ok := c.services[name]; ok {
		c.mu.Unlock()
		return svc
	}
	factory, ok := c.lazies[name]
	c.mu.Unlock()
	if !ok {
		panic(fmt.Sprintf("di: service %q not registered", name))
	}

	svc = factory(c)
	c.Register(name, svc)
	return svc
}

func (c *container) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.services[name]
	if ok {
		return true
	}
	_, ok = c.lazies[name]
	return ok
}

// Token is a typed service identifier.
type Token[T any] struct {
	name string
}

// NewToken creates a typed token with a unique name.
func NewToken[T any](name string) Token[T] {
	return Token[T]{name: name}
}

// Name returns the token's registry key.
func (t Token[T]) Name() string { return t.name }

// RegisterToken registers a lazily-constructed service under a typed token.
func RegisterToken[T any](c Container, token Token[T], factory func(ServiceRegistry) T) {
	cc, ok := c.(*container)
	if !ok {
		c.Register(token.name, factory(c))
		return
	}
	cc.registerLazy(token.name, func(sr ServiceRegistry) any {
		return factory(sr)
	})
}

// GetToken retrieves a service by typed token.
func GetToken[T any](c ServiceRegistry, token Token[T]) T {
	svc, ok := c.Get(token.name).(T)
	if !ok {
		panic(fmt.Sprintf("di: service %q has unexpected type", token.name))
	}
	return svc
}
