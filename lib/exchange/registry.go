// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package exchange

import "github.com/bureau-foundation/webeid/lib/protocol"

// Registry indexes in-flight exchanges by action. It is not safe for
// concurrent use; the Engine guards it with its own mutex.
type Registry struct {
	exchanges map[protocol.Action]*Exchange
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{exchanges: make(map[protocol.Action]*Exchange)}
}

// Get returns the exchange registered for action, or nil.
func (r *Registry) Get(action protocol.Action) *Exchange {
	return r.exchanges[action]
}

// Add registers x under its action. It returns false, leaving the
// registry unchanged, if another exchange already holds that action.
func (r *Registry) Add(x *Exchange) bool {
	if _, exists := r.exchanges[x.request.Action]; exists {
		return false
	}
	r.exchanges[x.request.Action] = x
	return true
}

// Remove unregisters x. It returns false if x is not the exchange
// registered for its action, so a stale handle can never evict a newer
// exchange for the same action.
func (r *Registry) Remove(x *Exchange) bool {
	if r.exchanges[x.request.Action] != x {
		return false
	}
	delete(r.exchanges, x.request.Action)
	return true
}

// Len returns the number of registered exchanges.
func (r *Registry) Len() int {
	return len(r.exchanges)
}

// All returns the registered exchanges in no particular order.
func (r *Registry) All() []*Exchange {
	all := make([]*Exchange, 0, len(r.exchanges))
	for _, x := range r.exchanges {
		all = append(all, x)
	}
	return all
}
