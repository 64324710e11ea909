// Package group holds the closed, static mapping described in spec.md
// section 4.B: which groups exist, which support species aliasing, which
// accept species filtering, and the fixed order DatabaseLoader walks them
// in. It is a leaf package (no locks, no I/O) modeled on the teacher's
// store/config.go constant tables.
package group

import "github.com/andrewyatz/ensembl-registry/adaptor"

// order is the fixed group-walk order used by DatabaseLoader. It is
// observable: a database name that happens to match two groups' regexes
// binds to whichever is earlier here. Tests depend on this order, per
// spec.md section 5.
var order = []adaptor.Group{
	adaptor.GroupCore,
	adaptor.GroupOtherFeatures,
	adaptor.GroupCdna,
	adaptor.GroupVega,
	adaptor.GroupRNASeq,
	adaptor.GroupVariation,
	adaptor.GroupFuncgen,
	adaptor.GroupUserUpload,
	adaptor.GroupCompara,
	adaptor.GroupAncestral,
	adaptor.GroupOntology,
	adaptor.GroupStableIds,
}

// Order returns a copy of the group-walk order.
func Order() []adaptor.Group {
	out := make([]adaptor.Group, len(order))
	copy(out, order)
	return out
}

var aliasCapable = map[adaptor.Group]bool{
	adaptor.GroupCore:    true,
	adaptor.GroupCompara: true,
}

var filterableGroups = map[adaptor.Group]bool{
	adaptor.GroupCore:          true,
	adaptor.GroupOtherFeatures: true,
	adaptor.GroupCdna:          true,
	adaptor.GroupVega:          true,
	adaptor.GroupRNASeq:        true,
	adaptor.GroupVariation:     true,
	adaptor.GroupFuncgen:       true,
	adaptor.GroupUserUpload:    true,
}

// moduleIDs maps each group recognized anywhere in the system (not just
// the ones DatabaseLoader walks) to a stable module identifier. This
// stands in for the dynamic "Bio::EnsEMBL::DBSQL::..." class name the
// original resolved at runtime; here it is only ever used as the key into
// an adaptor.FactoryRegistry.
var moduleIDs = map[adaptor.Group]string{
	adaptor.GroupCore:          "DBSQL::DBAdaptor",
	adaptor.GroupCdna:          "DBSQL::DBAdaptor",
	adaptor.GroupOtherFeatures: "DBSQL::DBAdaptor",
	adaptor.GroupRNASeq:        "DBSQL::DBAdaptor",
	adaptor.GroupVega:          "DBSQL::DBAdaptor",
	adaptor.GroupVariation:     "Variation::DBSQL::DBAdaptor",
	adaptor.GroupFuncgen:       "Funcgen::DBSQL::DBAdaptor",
	adaptor.GroupCompara:       "Compara::DBSQL::DBAdaptor",
	adaptor.GroupAncestral:     "DBSQL::DBAdaptor",
	adaptor.GroupOntology:      "OntologyTerm::DBSQL::DBAdaptor",
	adaptor.GroupStableIds:     "StableIds::DBSQL::DBAdaptor",
	adaptor.GroupUserUpload:    "DBSQL::DBAdaptor",
	adaptor.GroupHive:          "Hive::DBSQL::DBAdaptor",
	adaptor.GroupPipeline:      "Pipeline::DBSQL::DBAdaptor",
	adaptor.GroupBlast:         "Blast::DBSQL::DBAdaptor",
	adaptor.GroupHaplotype:     "Haplotype::DBSQL::DBAdaptor",
	adaptor.GroupSNP:           "SNP::DBSQL::DBAdaptor",
}

// ModuleFor returns the module identifier registered for group, and false
// if the group is not in the closed set at all (distinct from the group
// being known but having no adaptor factory loaded, which is
// ErrorUnavailableModule further up the stack).
func ModuleFor(g adaptor.Group) (string, bool) {
	id, ok := moduleIDs[g]
	return id, ok
}

// AliasAvailable reports whether g supports alias harvesting/resolution.
// Only core and compara do, per spec.md section 4.B.
func AliasAvailable(g adaptor.Group) bool {
	return aliasCapable[g]
}

// Filterable reports whether g can be restricted by DatabaseLoader's
// species filter.
func Filterable(g adaptor.Group) bool {
	return filterableGroups[g]
}

// Known reports whether g is a member of the closed group set at all.
func Known(g adaptor.Group) bool {
	_, ok := moduleIDs[g]
	return ok
}
