package loader

import (
	log "github.com/Sirupsen/logrus"

	"github.com/andrewyatz/ensembl-registry/adaptor"
	"github.com/andrewyatz/ensembl-registry/internal/logging"
	"github.com/andrewyatz/ensembl-registry/registry"
)

const structModule = "STRUCTLOAD"

// StructLoader is the canonical ingestion path spec.md section 4.F
// describes: every other loader decodes its source format down to a
// Document and hands it to a StructLoader.
type StructLoader struct {
	// Store is the destination registry. Required.
	Store *registry.Store
	// Factories resolves group names to adaptor factories. Defaults to
	// adaptor.Factories if nil.
	Factories *adaptor.FactoryRegistry
	// NoCache, if true, is forced onto every adaptor regardless of what
	// the document says, per spec.md section 4.F step 4.
	NoCache bool

	logger *log.Entry
}

func (l *StructLoader) factories() *adaptor.FactoryRegistry {
	if l.Factories != nil {
		return l.Factories
	}
	return adaptor.Factories
}

func (l *StructLoader) log() *log.Entry {
	if l.logger == nil {
		l.logger = logging.GetLogger(structModule)
	}
	return l.logger
}

// Load validates and ingests doc. A nil doc is ErrorBadInput; a nil
// Adaptors slice or a nil Aliases map is a tolerated no-op on the
// corresponding half, per spec.md section 4.F.
func (l *StructLoader) Load(doc *Document) error {
	if doc == nil {
		return adaptor.NewError(adaptor.ErrorBadInput, "document is required", nil)
	}
	if l.Store == nil {
		return adaptor.NewError(adaptor.ErrorBadInput, "store is required", nil)
	}

	blacklist := make(map[adaptor.Group]bool)

	for _, spec := range doc.Adaptors {
		if spec.Group == "" {
			l.log().Warn("adaptor spec is missing group, skipping")
			continue
		}
		g := adaptor.Group(spec.Group)
		if blacklist[g] {
			continue
		}

		factory, err := resolveFactory(l.factories(), g)
		if err != nil {
			l.log().WithError(err).Warnf("blacklisting group %q for the remainder of this load", g)
			blacklist[g] = true
			continue
		}

		if spec.Species == "" {
			l.log().Warn("adaptor spec is missing species, skipping")
			continue
		}

		da := spec.toDBAdaptor(l.NoCache)
		if _, err := factory(da); err != nil {
			l.log().WithError(err).Warnf("factory for group %q failed to instantiate, blacklisting", g)
			blacklist[g] = true
			continue
		}

		if err := l.Store.AddAdaptor(adaptor.Species(spec.Species), g, da, nil); err != nil {
			l.log().WithError(err).Warnf("could not register adaptor for %s/%s", spec.Species, spec.Group)
		}
	}

	for species, aliases := range doc.Aliases {
		converted := make([]adaptor.Species, len(aliases))
		for i, a := range aliases {
			converted[i] = adaptor.Species(a)
		}
		l.Store.AddAlias(adaptor.Species(species), converted...)
	}

	return nil
}
