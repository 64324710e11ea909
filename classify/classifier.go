// Package classify implements the database-name grammar from spec.md
// section 4.C: deciding, from a database name and a target release
// version, whether the name belongs to a group, whether it is
// multi-species, and what species/version it encodes.
//
// The regex table is compiled once per Classifier and indexed by group,
// per spec.md section 9's design note that the per-group patterns should
// be compiled once into an array indexed by group order and memoized on
// the classifier instance, the same way the teacher compiles its JSON
// schema once in NewValidator rather than per call.
package classify

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/andrewyatz/ensembl-registry/adaptor"
	"github.com/andrewyatz/ensembl-registry/group"
)

// Fragment grammar, shared across every non-special group so the table
// stays auditable (spec.md section 9).
const (
	nameFragment       = `[a-z]+_[a-z0-9]+(?:_[a-z0-9]+)?`
	collectionFragment = `[a-z0-9]+(?:_[a-z0-9]+)*_collection`
	endFragment        = `(?:_[0-9]+)?_([0-9]+)_[0-9]+[a-z]?`
)

// regular groups get the shared NAME/COLLECTION/END grammar with a
// literal "_<group>" infix.
var regularGroups = map[adaptor.Group]string{
	adaptor.GroupCore:          "core",
	adaptor.GroupOtherFeatures: "otherfeatures",
	adaptor.GroupCdna:          "cdna",
	adaptor.GroupVega:          "vega",
	adaptor.GroupRNASeq:        "rnaseq",
	adaptor.GroupVariation:     "variation",
	adaptor.GroupFuncgen:       "funcgen",
}

// noSubnameGroups (ancestral, ontology, stable_ids) share the
// "ensembl[<letters>]?_<kind>(_digits)?_<version>" shape and have no
// collection variant.
var noSubnameGroups = map[adaptor.Group]string{
	adaptor.GroupAncestral: "ancestral",
	adaptor.GroupOntology:  "ontology",
	adaptor.GroupStableIds: "stable_ids",
}

// Classification is the result of a successful Classify call, before the
// species/group post-processing spec.md section 4.C describes.
type Classification struct {
	Group        adaptor.Group
	Multispecies bool
	EncodedName  string
	Version      int
}

type pair struct {
	single     *regexp.Regexp
	collection *regexp.Regexp // nil when the group has no collection form
	versioned  bool
}

// Classifier holds the compiled regex table for every group in
// group.Order(). Construct one with New and reuse it; it holds no
// mutable state after construction, so it is safe for concurrent use.
type Classifier struct {
	patterns map[adaptor.Group]pair
}

// New compiles the full regex table and returns a ready-to-use Classifier.
func New() *Classifier {
	c := &Classifier{patterns: make(map[adaptor.Group]pair)}
	for _, g := range group.Order() {
		c.patterns[g] = compileFor(g)
	}
	return c
}

func compileFor(g adaptor.Group) pair {
	if g == adaptor.GroupUserUpload {
		return pair{
			single:     regexp.MustCompile(`^(` + nameFragment + `)_userdata$`),
			collection: regexp.MustCompile(`^(` + collectionFragment + `)_userdata$`),
			versioned:  false,
		}
	}

	if g == adaptor.GroupCompara {
		return pair{
			single:    regexp.MustCompile(`^(ensembl_compara(?:_[a-z0-9]+)*?)(?:_[0-9]+)?_([0-9]+)$`),
			versioned: true,
		}
	}

	if kind, ok := noSubnameGroups[g]; ok {
		return pair{
			single:    regexp.MustCompile(`^(ensembl[a-z]*_` + regexp.QuoteMeta(kind) + `)(?:_[0-9]+)?_([0-9]+)$`),
			versioned: true,
		}
	}

	if literal, ok := regularGroups[g]; ok {
		infix := "_" + literal
		return pair{
			single:     regexp.MustCompile(`^(` + nameFragment + `)` + infix + endFragment + `$`),
			collection: regexp.MustCompile(`^(` + collectionFragment + `)` + infix + endFragment + `$`),
			versioned:  true,
		}
	}

	// Not a group the loader ever pattern-matches against (hive,
	// pipeline, blast, haplotype, snp): no regex, classify will simply
	// never match it.
	return pair{}
}

// Classify tries dbname against group g's compiled single/collection
// patterns, preferring the collection form, and checking the captured
// version against want when the group is versioned. It reports whether
// the name matched at all.
func (c *Classifier) Classify(dbname string, g adaptor.Group, want int) (*Classification, bool) {
	p, ok := c.patterns[g]
	if !ok || (p.single == nil && p.collection == nil) {
		return nil, false
	}

	if p.collection != nil {
		if m := p.collection.FindStringSubmatch(dbname); m != nil {
			if cl, ok := matchResult(g, m, p.versioned, want, true); ok {
				return cl, true
			}
		}
	}

	if p.single != nil {
		if m := p.single.FindStringSubmatch(dbname); m != nil {
			if cl, ok := matchResult(g, m, p.versioned, want, false); ok {
				return cl, true
			}
		}
	}

	return nil, false
}

// ClassifyAny walks group.Order() and returns the first group (in that
// fixed order) that dbname classifies against, per spec.md section 4.D
// step 3b. DatabaseLoader does not call it: it walks group.Order() itself
// and calls Classify once per group.
func (c *Classifier) ClassifyAny(dbname string, want int) (*Classification, bool) {
	for _, g := range group.Order() {
		if cl, ok := c.Classify(dbname, g, want); ok {
			return cl, true
		}
	}
	return nil, false
}

func matchResult(g adaptor.Group, m []string, versioned bool, want int, multi bool) (*Classification, bool) {
	encoded := m[1]

	if !versioned {
		return &Classification{Group: g, Multispecies: multi, EncodedName: encoded, Version: want}, true
	}

	got, err := strconv.Atoi(m[2])
	if err != nil || got != want {
		return nil, false
	}

	return &Classification{Group: g, Multispecies: multi, EncodedName: encoded, Version: got}, true
}

// PostProcess applies spec.md section 4.C's per-group species/group
// rewrite to a successful Classification, returning the canonical species
// and the group the adaptor should actually be registered under (these
// differ only for ancestral, which is stored as core).
func PostProcess(cl *Classification) (species adaptor.Species, storedGroup adaptor.Group) {
	switch cl.Group {
	case adaptor.GroupCompara:
		if sub, ok := comparaSubname(cl.EncodedName); ok {
			return adaptor.Species(sub), adaptor.GroupCompara
		}
		return adaptor.MultiSpecies, adaptor.GroupCompara
	case adaptor.GroupOntology, adaptor.GroupStableIds:
		return adaptor.MultiSpecies, cl.Group
	case adaptor.GroupAncestral:
		return adaptor.AncestralSpecies, adaptor.GroupCore
	default:
		return adaptor.Species(cl.EncodedName), cl.Group
	}
}

func comparaSubname(encoded string) (string, bool) {
	const prefix = "ensembl_compara_"
	if strings.HasPrefix(encoded, prefix) && len(encoded) > len(prefix) {
		return encoded[len(prefix):], true
	}
	return "", false
}

// ValidateVersion is a small guard used by callers that want a clear error
// instead of a silent "no match" when an obviously malformed version is
// supplied.
func ValidateVersion(version int) error {
	if version <= 0 {
		return fmt.Errorf("invalid release version: %d", version)
	}
	return nil
}
