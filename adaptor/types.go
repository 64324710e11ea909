// Package adaptor holds the leaf types shared by every other package in
// this module: the canonical Species/Group string types, the DBAdaptor
// envelope the registry stores, the QueryRunner interface that models the
// (out of scope) MySQL client, and the adaptor factory registry that
// replaces dynamic module loading.
package adaptor

import "strings"

// Species is a canonical species name (lowercase, except the
// AncestralSpecies pseudo-species), or an alias that resolves to one
// through the registry's alias table.
type Species string

// Group is one of the closed set of database roles enumerated in the
// registry specification (core, variation, compara, ...).
type Group string

// Closed set of groups known to the registry. Not every group here is
// walked by the database loader (see group.Order); pipeline, hive, blast,
// haplotype and snp only ever arrive through explicit configuration.
const (
	GroupCore          Group = "core"
	GroupCdna          Group = "cdna"
	GroupOtherFeatures Group = "otherfeatures"
	GroupRNASeq        Group = "rnaseq"
	GroupVega          Group = "vega"
	GroupVariation     Group = "variation"
	GroupFuncgen       Group = "funcgen"
	GroupCompara       Group = "compara"
	GroupAncestral     Group = "ancestral"
	GroupOntology      Group = "ontology"
	GroupStableIds     Group = "stable_ids"
	GroupUserUpload    Group = "userupload"
	GroupHive          Group = "hive"
	GroupPipeline      Group = "pipeline"
	GroupBlast         Group = "blast"
	GroupHaplotype     Group = "haplotype"
	GroupSNP           Group = "snp"
)

// MultiSpecies is the canonical species under which compara-without-subname,
// ontology and stable_ids adaptors are registered.
const MultiSpecies Species = "multi"

// AncestralSpecies is the canonical species under which ancestral-sequence
// adaptors are registered; the group stored alongside it is always "core".
const AncestralSpecies Species = "Ancestral sequences"

// NormalizeSpecies lowercases a user-supplied species name and folds spaces
// and dashes to underscores, per spec invariant 4. It does not alias-resolve.
func NormalizeSpecies(name string) Species {
	lower := strings.ToLower(name)
	lower = strings.ReplaceAll(lower, " ", "_")
	lower = strings.ReplaceAll(lower, "-", "_")
	return Species(lower)
}

// String returns the plain string form of the species.
func (s Species) String() string { return string(s) }

// String returns the plain string form of the group.
func (g Group) String() string { return string(g) }
