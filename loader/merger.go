package loader

import (
	"context"

	"github.com/andrewyatz/ensembl-registry/adaptor"
	"github.com/andrewyatz/ensembl-registry/registry"
)

// MultiServerMerger is component G: it runs a DatabaseLoader once per
// server against a scratch store, then folds each result into the main
// store in declaration order, so the first server to register a given
// (species, group) wins ties, per spec.md section 4.G.
type MultiServerMerger struct {
	Store     *registry.Store
	Factories *adaptor.FactoryRegistry
	// Verbose, if true, logs merge conflicts at Info instead of Debug.
	Verbose bool
}

// Load runs one DatabaseLoader per entry in servers, in order, merging
// each into Store before moving to the next.
func (m *MultiServerMerger) Load(ctx context.Context, servers []DatabaseLoaderOptions) error {
	if m.Store == nil {
		return adaptor.NewError(adaptor.ErrorBadInput, "store is required", nil)
	}

	for _, opts := range servers {
		scratch := registry.New()
		dl := &DatabaseLoader{Store: scratch, Factories: m.Factories}
		if err := dl.Load(ctx, opts); err != nil {
			return err
		}
		m.Store.Merge(scratch, m.Verbose)
	}

	return nil
}
