// Package locate implements the stable-id locator described in spec.md
// section 4.H: given a stable id, find the species, group and object type
// that own it. It tries an indexed fast path first, falling back to a
// linear scan of the registered adaptors of one group (core unless the
// caller names another).
package locate

import (
	"context"
	"fmt"

	"github.com/andrewyatz/ensembl-registry/adaptor"
	"github.com/andrewyatz/ensembl-registry/registry"
)

// ObjectType enumerates the kinds of stable id the linear-scan fallback
// knows how to look up.
type ObjectType string

// Object types tried by the linear scan, per spec.md section 4.H.
const (
	ObjectGene        ObjectType = "gene"
	ObjectTranscript  ObjectType = "transcript"
	ObjectTranslation ObjectType = "translation"
	ObjectExon        ObjectType = "exon"
	ObjectOperon      ObjectType = "operon"
	ObjectGeneTree    ObjectType = "gene_tree"
)

// defaultOrder is tried against every adaptor except compara, which uses
// comparaOrder instead: a stable id never means "gene" in a compara
// database.
var (
	defaultOrder = []ObjectType{ObjectGene, ObjectTranscript, ObjectTranslation, ObjectExon, ObjectOperon}
	comparaOrder = []ObjectType{ObjectGeneTree}
)

// queryTemplates hold the single-placeholder SQL run against a candidate
// database for each object type.
var queryTemplates = map[ObjectType]string{
	ObjectGene:        `select 1 from gene where stable_id = '%s'`,
	ObjectTranscript:  `select 1 from transcript where stable_id = '%s'`,
	ObjectTranslation: `select 1 from translation where stable_id = '%s'`,
	ObjectExon:        `select 1 from exon where stable_id = '%s'`,
	ObjectOperon:      `select 1 from operon where stable_id = '%s'`,
	ObjectGeneTree:    `select 1 from gene_tree_node where node_id = '%s'`,
}

const typedAdaptorKind = "stable_ids_lookup"

// StableIdsLookup is the typed adaptor a stable_ids group database
// registers to answer lookups with one indexed query instead of the
// linear scan fallback.
type StableIdsLookup interface {
	Lookup(ctx context.Context, stableID string) (species adaptor.Species, objectType string, found bool, err error)
}

// Result is what Locate returns on a hit.
type Result struct {
	Species    adaptor.Species
	Group      adaptor.Group
	ObjectType ObjectType
}

// LocateOptions narrows a Locate call, per spec.md section 4.H: a caller
// that already knows roughly where a stable id lives can skip the indexed
// fast path and/or restrict the linear scan's candidate set, rather than
// paying for an exhaustive search.
type LocateOptions struct {
	// KnownSpecies, if set, restricts linearScan to adaptors for that
	// species only.
	KnownSpecies adaptor.Species

	// KnownGroup, if set, restricts linearScan to that group. When empty,
	// linearScan defaults to "core", matching spec.md section 4.H.
	KnownGroup adaptor.Group

	// KnownType, if set, restricts the per-adaptor object-type iteration to
	// just that type instead of the full defaultOrder/comparaOrder list.
	KnownType ObjectType

	// ForceLongLookup skips the indexed fast path entirely and goes
	// straight to linearScan, per spec.md section 4.H.
	ForceLongLookup bool
}

// StableIdLocator resolves a stable id to the species and object type that
// own it, per spec.md section 4.H.
type StableIdLocator struct {
	Store *registry.Store
}

// Locate resolves stableID. It tries the indexed fast path across every
// registered stable_ids adaptor first, falling back to linearScan if no
// fast path answers. With the zero value of opts, the scan covers every
// core adaptor, in registration order.
func (l *StableIdLocator) Locate(ctx context.Context, stableID string, opts LocateOptions) (*Result, error) {
	if l.Store == nil {
		return nil, adaptor.NewError(adaptor.ErrorBadInput, "store is required", nil)
	}
	if stableID == "" {
		return nil, adaptor.NewError(adaptor.ErrorBadInput, "stable id is required", nil)
	}

	if !opts.ForceLongLookup {
		res, ok, err := l.fastPath(ctx, stableID)
		if err != nil {
			return nil, err
		}
		if ok {
			return res, nil
		}
	}

	return l.linearScan(ctx, stableID, opts)
}

func (l *StableIdLocator) fastPath(ctx context.Context, stableID string) (*Result, bool, error) {
	for _, da := range l.Store.GetAllDBAdaptors("", adaptor.GroupStableIds) {
		ta, ok := l.Store.GetTypedAdaptor(da.Species, da.Group, typedAdaptorKind)
		if !ok {
			continue
		}
		lookup, ok := ta.(StableIdsLookup)
		if !ok {
			continue
		}

		species, objType, found, err := lookup.Lookup(ctx, stableID)
		if err != nil {
			return nil, false, adaptor.NewError(adaptor.ErrorBackend, "stable id lookup failed", err)
		}
		if found {
			return &Result{Species: species, Group: da.Group, ObjectType: ObjectType(objType)}, true, nil
		}
	}
	return nil, false, nil
}

// linearScan checks every non-stable_ids adaptor matching opts' hints,
// skipping a repeat visit to a multi-species connection it has already
// queried (visiting bacteria_collection_core once covers every species
// inside it). A hit's species is always reported as the owning DBAdaptor's
// own species rather than anything the query itself returned, since the
// per-type templates only ever confirm presence, not identity.
//
// Per spec.md section 4.H, the candidate group defaults to "core" when
// KnownGroup is not given, rather than scanning every group.
func (l *StableIdLocator) linearScan(ctx context.Context, stableID string, opts LocateOptions) (*Result, error) {
	grp := opts.KnownGroup
	if grp == "" {
		grp = adaptor.GroupCore
	}

	visitedConnections := make(map[string]bool)

	for _, da := range l.Store.GetAllDBAdaptors(opts.KnownSpecies, grp) {
		if da.Group == adaptor.GroupStableIds || da.Conn == nil {
			continue
		}
		if da.IsMultispecies {
			loc := da.Locator()
			if visitedConnections[loc] {
				continue
			}
			visitedConnections[loc] = true
		}

		order := defaultOrder
		if da.Group == adaptor.GroupCompara {
			order = comparaOrder
		}
		if opts.KnownType != "" {
			order = []ObjectType{opts.KnownType}
		}

		for _, objType := range order {
			template, ok := queryTemplates[objType]
			if !ok {
				continue
			}
			rows, err := da.Conn.Query(ctx, da.DBName, fmt.Sprintf(template, stableID))
			if err != nil || len(rows) == 0 {
				continue
			}
			return &Result{Species: da.Species, Group: da.Group, ObjectType: objType}, nil
		}
	}

	return nil, adaptor.NewError(adaptor.ErrorNotFound, "stable id not found: "+stableID, nil)
}
