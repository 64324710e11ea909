// Package registry implements the in-memory registry store described in
// spec.md section 4.A: the normalized index of adaptors and aliases, plus
// its invariants and lookup/merge operations. It is modeled directly on
// the teacher's store package (a mutex-guarded map of Catalog, a flat
// Error type, rcrowley/go-metrics counters) generalized from "namespace of
// service instances" to "species/group of database adaptors".
package registry

import (
	"strings"
	"sync"

	log "github.com/Sirupsen/logrus"
	"github.com/rcrowley/go-metrics"

	"github.com/andrewyatz/ensembl-registry/adaptor"
	"github.com/andrewyatz/ensembl-registry/internal/logging"
)

const module = "STORE"

const (
	adaptorCountMetric = "registry.adaptors.count"
	aliasCountMetric   = "registry.aliases.count"
	typedCountMetric   = "registry.typed_adaptors.count"
)

type slotKey struct {
	species adaptor.Species
	group   adaptor.Group
}

type typedSlotKey struct {
	species adaptor.Species
	group   adaptor.Group
	kind    string
}

type dnaOverrideTarget struct {
	species adaptor.Species
	group   adaptor.Group
}

// Store is the registry's in-memory index. The zero value is not usable;
// construct one with New() or use Default().
type Store struct {
	mu sync.RWMutex

	aliases   map[adaptor.Species]adaptor.Species // lowercase alias -> canonical species, original casing preserved
	adaptors  map[slotKey]*adaptor.DBAdaptor
	typed     map[typedSlotKey]adaptor.TypedAdaptor
	dnaRedirects map[slotKey]dnaOverrideTarget

	// flat is the list backing GetAllDBAdaptors iteration, maintained
	// alongside adaptors (appended on registration, removed from on
	// replacement or removal) so each registered adaptor appears exactly
	// once (spec.md invariant 3).
	flat []*adaptor.DBAdaptor

	logger *log.Entry

	adaptorsGauge metrics.Counter
	aliasesGauge  metrics.Counter
	typedGauge    metrics.Counter
}

// New creates an empty, private registry instance.
func New() *Store {
	return &Store{
		aliases:      make(map[adaptor.Species]adaptor.Species),
		adaptors:     make(map[slotKey]*adaptor.DBAdaptor),
		typed:        make(map[typedSlotKey]adaptor.TypedAdaptor),
		dnaRedirects: make(map[slotKey]dnaOverrideTarget),
		logger:       logging.GetLogger(module),

		adaptorsGauge: metrics.NewCounter(),
		aliasesGauge:  metrics.NewCounter(),
		typedGauge:    metrics.NewCounter(),
	}
}

var (
	defaultOnce  sync.Once
	defaultStore *Store
)

// Default returns the process-wide singleton registry, constructing it on
// first use. Most callers that only ever need one registry per process
// should use this instead of New().
func Default() *Store {
	defaultOnce.Do(func() {
		defaultStore = New()
	})
	return defaultStore
}

// AddOptions controls AddAdaptor/AddTypedAdaptor's duplicate-registration
// behavior, replacing the Perl "-RESET => 1" option-hash flag (spec.md
// section 9's option-struct design note).
type AddOptions struct {
	// Reset, if true, allows a second registration under the same slot to
	// silently replace the first instead of raising ErrorAlreadyExists.
	Reset bool
}

// normalize case-folds s for use as a map key. It is a lookup-only
// transform: the original casing of a canonical species (e.g. the literal
// "Ancestral sequences") is preserved in the alias table's values and in
// every DBAdaptor.Species field, never collapsed to this form.
func normalize(s adaptor.Species) adaptor.Species {
	return adaptor.Species(strings.ToLower(string(s)))
}

// AddAdaptor registers da under (species, group). It creates the
// species -> species alias if one does not already exist (invariant 1).
// A second registration of the same (species, group) is an error unless
// opts.Reset is set.
func (s *Store) AddAdaptor(species adaptor.Species, grp adaptor.Group, da *adaptor.DBAdaptor, opts *AddOptions) error {
	if species == "" {
		return adaptor.NewError(adaptor.ErrorBadInput, "species is required", nil)
	}
	if grp == "" {
		return adaptor.NewError(adaptor.ErrorBadInput, "group is required", nil)
	}
	if da == nil {
		return adaptor.NewError(adaptor.ErrorBadInput, "adaptor is required", nil)
	}

	reset := opts != nil && opts.Reset
	lower := normalize(species)
	key := slotKey{species: lower, group: grp}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.adaptors[key]; exists && !reset {
		return adaptor.NewError(adaptor.ErrorAlreadyExists, "adaptor already registered for "+string(species)+"/"+string(grp), nil)
	}
	if _, ok := s.aliases[lower]; !ok {
		s.aliases[lower] = species
		s.aliasesGauge.Inc(1)
	}

	if old, replacing := s.adaptors[key]; replacing {
		s.flat = removeFromFlat(s.flat, old)
	} else {
		s.adaptorsGauge.Inc(1)
	}
	s.adaptors[key] = da
	s.flat = appendUnique(s.flat, da)

	return nil
}

func appendUnique(flat []*adaptor.DBAdaptor, da *adaptor.DBAdaptor) []*adaptor.DBAdaptor {
	for i, existing := range flat {
		if existing == da {
			return flat
		}
		_ = i
	}
	return append(flat, da)
}

// AddTypedAdaptor registers a specialized, lazily-instantiated adaptor
// under (species, group, kind), such as a gene or transcript adaptor.
func (s *Store) AddTypedAdaptor(species adaptor.Species, grp adaptor.Group, kind string, ta adaptor.TypedAdaptor, opts *AddOptions) error {
	if species == "" || grp == "" || kind == "" {
		return adaptor.NewError(adaptor.ErrorBadInput, "species, group and type are required", nil)
	}

	reset := opts != nil && opts.Reset
	lower := normalize(species)
	key := typedSlotKey{species: lower, group: grp, kind: kind}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.typed[key]; exists && !reset {
		return adaptor.NewError(adaptor.ErrorAlreadyExists, "typed adaptor already registered", nil)
	}
	if _, ok := s.aliases[lower]; !ok {
		s.aliases[lower] = species
		s.aliasesGauge.Inc(1)
	}
	if _, replacing := s.typed[key]; !replacing {
		s.typedGauge.Inc(1)
	}
	s.typed[key] = ta

	return nil
}

// GetTypedAdaptor returns the typed adaptor registered under
// (species, group, kind), resolving species through the alias table
// first.
func (s *Store) GetTypedAdaptor(species adaptor.Species, grp adaptor.Group, kind string) (adaptor.TypedAdaptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	canonical, ok := s.resolveLocked(species)
	if !ok {
		return nil, false
	}
	ta, ok := s.typed[typedSlotKey{species: canonical, group: grp, kind: kind}]
	return ta, ok
}

// GetDBAdaptor resolves species through the alias table and returns the
// adaptor registered for (species, group), or nil if none is registered.
func (s *Store) GetDBAdaptor(species adaptor.Species, grp adaptor.Group) *adaptor.DBAdaptor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	canonical, ok := s.resolveLocked(species)
	if !ok {
		return nil
	}
	return s.adaptors[slotKey{species: canonical, group: grp}]
}

// GetAllDBAdaptors returns every registered adaptor, optionally filtered
// by species and/or group. A zero value for either filter means
// "unfiltered", matching the "-GROUP and optional -SPECIES" intent
// spec.md section 9 prescribes for the corrected forwarding bug.
func (s *Store) GetAllDBAdaptors(species adaptor.Species, grp adaptor.Group) []*adaptor.DBAdaptor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var canonical adaptor.Species
	filterSpecies := species != ""
	if filterSpecies {
		resolved, ok := s.resolveLocked(species)
		if !ok {
			return nil
		}
		canonical = resolved
	}

	out := make([]*adaptor.DBAdaptor, 0, len(s.flat))
	for _, da := range s.flat {
		if filterSpecies && normalize(da.Species) != normalize(canonical) {
			continue
		}
		if grp != "" && da.Group != grp {
			continue
		}
		out = append(out, da)
	}
	return out
}

// GetAllDBAdaptorsByConnection returns every adaptor that shares ref's
// physical connection (host, port, user, dbname).
func (s *Store) GetAllDBAdaptorsByConnection(ref *adaptor.DBAdaptor) []*adaptor.DBAdaptor {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*adaptor.DBAdaptor, 0)
	for _, da := range s.flat {
		if da.SameConnection(ref) {
			out = append(out, da)
		}
	}
	return out
}

// RemoveDBAdaptor removes the adaptor registered for (species, group), if
// any. It leaves the species' alias entries untouched.
func (s *Store) RemoveDBAdaptor(species adaptor.Species, grp adaptor.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()

	canonical, ok := s.resolveLocked(species)
	if !ok {
		return
	}
	key := slotKey{species: canonical, group: grp}
	da, exists := s.adaptors[key]
	if !exists {
		return
	}
	delete(s.adaptors, key)
	s.adaptorsGauge.Dec(1)
	s.flat = removeFromFlat(s.flat, da)
}

func removeFromFlat(flat []*adaptor.DBAdaptor, target *adaptor.DBAdaptor) []*adaptor.DBAdaptor {
	for i, da := range flat {
		if da == target {
			flat[i] = flat[len(flat)-1]
			return flat[:len(flat)-1]
		}
	}
	return flat
}

// AddAlias registers one or more aliases (compared case-insensitively)
// pointing at species. species itself does not need to already have an
// adaptor registered; if it has no alias entry yet, one pointing at itself
// is created first. If species was already seen (as a canonical species
// or as the target of an earlier AddAlias call), that earlier casing is
// kept; this is what lets the literal "Ancestral sequences" canonical
// species survive untouched through alias registration.
func (s *Store) AddAlias(species adaptor.Species, aliases ...adaptor.Species) {
	if len(aliases) == 0 {
		return
	}

	lowerCanonical := normalize(species)

	s.mu.Lock()
	defer s.mu.Unlock()

	canonical := species
	if existing, ok := s.aliases[lowerCanonical]; ok {
		canonical = existing
	} else {
		s.aliases[lowerCanonical] = species
		s.aliasesGauge.Inc(1)
	}

	for _, a := range aliases {
		lower := normalize(a)
		if _, exists := s.aliases[lower]; !exists {
			s.aliasesGauge.Inc(1)
		}
		s.aliases[lower] = canonical
	}
}

// GetAlias resolves name to its canonical species. If name is itself a
// canonical species with no alias entry (one that has adaptor slots but
// whose self-alias was removed), GetAlias returns the lowercased name. It
// returns "", false if name is not known at all.
func (s *Store) GetAlias(name adaptor.Species) (adaptor.Species, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolveLocked(name)
}

// resolveLocked must be called with s.mu held (read or write).
func (s *Store) resolveLocked(name adaptor.Species) (adaptor.Species, bool) {
	lower := normalize(name)
	if canonical, ok := s.aliases[lower]; ok {
		return canonical, true
	}
	// Not present as an alias (AddAdaptor/AddTypedAdaptor normally create
	// one); if it is itself a registered canonical species (has at least
	// one adaptor or typed-adaptor slot under it) return it unchanged, per
	// spec.md section 4.A's get_alias contract. The original casing is
	// already lost at this point since only the lowercase form survives in
	// slotKey; this only fires if the self-alias was explicitly removed.
	for key := range s.adaptors {
		if key.species == lower {
			return lower, true
		}
	}
	for key := range s.typed {
		if key.species == lower {
			return lower, true
		}
	}
	return "", false
}

// GetAllAliases returns every alias pointing at the same canonical species
// as name, excluding name itself.
func (s *Store) GetAllAliases(name adaptor.Species) []adaptor.Species {
	s.mu.RLock()
	defer s.mu.RUnlock()

	canonical, ok := s.resolveLocked(name)
	if !ok {
		return nil
	}

	lowerInput := normalize(name)
	out := make([]adaptor.Species, 0)
	for alias, target := range s.aliases {
		if target != canonical {
			continue
		}
		if alias == lowerInput {
			continue
		}
		out = append(out, alias)
	}
	return out
}

// RemoveAlias removes a single alias entry. Removing a species' own
// self-alias is allowed, matching the Perl implementation's lack of
// protection for the invariant; callers that rely on invariant 1 holding
// should not do this for species with live adaptors.
func (s *Store) RemoveAlias(alias adaptor.Species) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lower := normalize(alias)
	if _, exists := s.aliases[lower]; exists {
		delete(s.aliases, lower)
		s.aliasesGauge.Dec(1)
	}
}

// SetDNAOverride redirects sequence-type requests for (species, group) to
// (dnaSpecies, dnaGroup).
func (s *Store) SetDNAOverride(species adaptor.Species, grp adaptor.Group, dnaSpecies adaptor.Species, dnaGroup adaptor.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dnaRedirects[slotKey{species: normalize(species), group: grp}] = dnaOverrideTarget{species: normalize(dnaSpecies), group: dnaGroup}
}

// ResolveDNAAdaptor returns the adaptor that should actually serve
// sequence data for (species, group): the DNA-override target if one is
// registered and resolves to a live adaptor, falling back to the original
// (species, group) otherwise, per spec.md invariant 5.
func (s *Store) ResolveDNAAdaptor(species adaptor.Species, grp adaptor.Group) *adaptor.DBAdaptor {
	s.mu.RLock()
	canonical, ok := s.resolveLocked(species)
	if !ok {
		s.mu.RUnlock()
		return nil
	}
	target, hasOverride := s.dnaRedirects[slotKey{species: canonical, group: grp}]
	s.mu.RUnlock()

	if hasOverride {
		if da := s.GetDBAdaptor(target.species, target.group); da != nil {
			return da
		}
	}
	return s.GetDBAdaptor(canonical, grp)
}

// Clear disconnects every idle adaptor connection and empties the store.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, da := range s.flat {
		if err := da.Disconnect(); err != nil {
			s.logger.WithError(err).Warn("failed to disconnect adaptor during clear")
		}
	}

	s.aliases = make(map[adaptor.Species]adaptor.Species)
	s.adaptors = make(map[slotKey]*adaptor.DBAdaptor)
	s.typed = make(map[typedSlotKey]adaptor.TypedAdaptor)
	s.dnaRedirects = make(map[slotKey]dnaOverrideTarget)
	s.flat = nil
	s.adaptorsGauge.Clear()
	s.aliasesGauge.Clear()
	s.typedGauge.Clear()
}

// Merge copies every adaptor and alias from other into s that is not
// already present in s; first-seen (already in s) wins. It never returns
// an error on a duplicate, per spec.md section 4.A; verbose causes
// duplicates to be logged at Info instead of Debug.
func (s *Store) Merge(other *Store, verbose bool) {
	if other == nil {
		return
	}

	other.mu.RLock()
	otherFlat := make([]*adaptor.DBAdaptor, len(other.flat))
	copy(otherFlat, other.flat)
	otherAliases := make(map[adaptor.Species]adaptor.Species, len(other.aliases))
	for k, v := range other.aliases {
		otherAliases[k] = v
	}
	other.mu.RUnlock()

	logAt := s.logger.Debug
	if verbose {
		logAt = s.logger.Info
	}

	for _, da := range otherFlat {
		if err := s.AddAdaptor(da.Species, da.Group, da, nil); err != nil {
			logAt(adaptor.NewError(adaptor.ErrorAlreadyExists, "duplicate adaptor during merge, first-seen wins", nil).Error())
		}
	}

	for alias, canonical := range otherAliases {
		s.mu.RLock()
		_, exists := s.aliases[alias]
		s.mu.RUnlock()
		if exists {
			logAt("duplicate alias '" + string(alias) + "' during merge, first-seen wins")
			continue
		}
		s.AddAlias(canonical, alias)
	}
}
