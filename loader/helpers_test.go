package loader

import "github.com/andrewyatz/ensembl-registry/registry"

func newTestStore() *registry.Store {
	return registry.New()
}
