package resource

import "github.com/rhizomegfx/framegraph/registry"

func newTestHub() *registry.Hub {
	return registry.NewHub()
}
