package registry

import (
	"github.com/okieraised/smartfarm-agent/internal/infrastructure/log"
	"github.com/okieraised/smartfarm-agent/internal/node"
	"go.uber.org/zap"
)

// FromConfigs builds a registry holding one node per declaration. A node
// that fails to provision is still registered, unprovisioned, so it shows up
// in reports; the number of such failures is returned.
func FromConfigs(cfgs []node.Config, logger *log.Logger, nodeOpts ...node.Option) (*Registry, int) {
	r := New(logger)
	failed := 0
	for _, cfg := range cfgs {
		n := node.New(cfg.ID, nodeOpts...)
		if err := n.Provision(cfg); err != nil {
			failed++
			r.logger.Error("node provisioning failed", zap.String("node_id", cfg.ID), zap.Error(err))
		}
		r.Put(n)
	}
	return r, failed
}
