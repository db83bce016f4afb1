// Package registry is the process-wide directory of farm nodes. It is built
// once at startup and handed to every task that needs to find a node.
package registry

import (
	"sort"
	"sync"

	"github.com/okieraised/smartfarm-agent/internal/infrastructure/log"
	"github.com/okieraised/smartfarm-agent/internal/node"
	"go.uber.org/zap"
)

type Registry struct {
	mu     sync.RWMutex
	nodes  map[string]*node.Node
	logger *log.Logger
}

func New(logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{
		nodes:  map[string]*node.Node{},
		logger: logger.Named("registry"),
	}
}

// Put registers n. Reusing an id replaces the previous node.
func (r *Registry) Put(n *node.Node) {
	r.mu.Lock()
	_, replaced := r.nodes[n.ID()]
	r.nodes[n.ID()] = n
	r.mu.Unlock()

	if replaced {
		r.logger.Warn("node id reused, previous node replaced", zap.String("node_id", n.ID()))
	}
}

func (r *Registry) Get(id string) (*node.Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[id]
	return n, ok
}

// Enumerate returns every node ordered by id.
func (r *Registry) Enumerate() []*node.Node {
	r.mu.RLock()
	out := make([]*node.Node, 0, len(r.nodes))
	for _, n := range r.nodes {
		out = append(out, n)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}
