// Package loader implements the four population paths described in
// spec.md section 4: ConfigLoader (INI/JSON documents), StructLoader (the
// canonical normalized-hash ingestion path both feed), DatabaseLoader
// (live server enumeration) and MultiServerMerger (fan-out across
// servers). All four end by calling into a *registry.Store.
package loader

import (
	"time"

	"github.com/andrewyatz/ensembl-registry/adaptor"
	"github.com/andrewyatz/ensembl-registry/group"
)

// AdaptorSpec is one decoded adaptor record, the Go shape of a single INI
// section or JSON "adaptors" array element (spec.md section 4.F/6).
type AdaptorSpec struct {
	Species                     string
	Group                       string
	Host                        string
	Port                        int
	User                        string
	Pass                        string
	DBName                      string
	Driver                      string
	SpeciesID                   int
	MultispeciesDB              bool
	DisconnectWhenInactive      bool
	WaitTimeout                 time.Duration
	ReconnectWhenConnectionLost bool
	NoCache                     bool
}

// Document is the normalized structure both ConfigLoader and StructLoader
// operate on: a flat adaptor list plus a per-species alias list, matching
// spec.md section 4.F's `{adaptors: [...], aliases: {species: [alias,...]}}`
// contract.
type Document struct {
	Adaptors []AdaptorSpec
	Aliases  map[string][]string
}

// toDBAdaptor builds the envelope the registry stores from a decoded spec,
// applying the loader-level NoCache override described in spec.md section
// 4.F step 4.
func (spec AdaptorSpec) toDBAdaptor(forceNoCache bool) *adaptor.DBAdaptor {
	return &adaptor.DBAdaptor{
		Species:                adaptor.Species(spec.Species),
		SpeciesID:              spec.SpeciesID,
		Group:                  adaptor.Group(spec.Group),
		IsMultispecies:         spec.MultispeciesDB,
		DBName:                 spec.DBName,
		Host:                   spec.Host,
		Port:                   spec.Port,
		User:                   spec.User,
		Pass:                   spec.Pass,
		Driver:                 spec.Driver,
		WaitTimeout:            spec.WaitTimeout,
		DisconnectWhenInactive: spec.DisconnectWhenInactive,
		ReconnectWhenLost:      spec.ReconnectWhenConnectionLost,
		NoCache:                spec.NoCache || forceNoCache,
	}
}

// resolveFactory implements the two-step "look up the module id, then try
// to load it" check shared by StructLoader and DatabaseLoader (spec.md
// sections 4.D.3.a and 4.F.2-3): a group outside the closed set and a
// group with no registered factory are both ErrorUnavailableModule, but
// are logged with different messages so operators can tell "typo'd group
// name" apart from "adaptor package never linked in".
func resolveFactory(factories *adaptor.FactoryRegistry, g adaptor.Group) (adaptor.Factory, error) {
	if !group.Known(g) {
		return nil, adaptor.NewError(adaptor.ErrorUnavailableModule, "unknown group: "+string(g), nil)
	}
	f, ok := factories.Lookup(g)
	if !ok {
		return nil, adaptor.NewError(adaptor.ErrorUnavailableModule, "no adaptor factory registered for group: "+string(g), nil)
	}
	return f, nil
}
