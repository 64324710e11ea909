package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/andrewyatz/ensembl-registry/adaptor"
)

func TestClassifySingleSpeciesCore(t *testing.T) {
	c := New()

	cl, ok := c.Classify("homo_sapiens_core_65_37", adaptor.GroupCore, 65)
	assert.True(t, ok)
	assert.Equal(t, "homo_sapiens", cl.EncodedName)
	assert.False(t, cl.Multispecies)
	assert.Equal(t, 65, cl.Version)
}

func TestClassifyWrongVersionDoesNotMatch(t *testing.T) {
	c := New()

	_, ok := c.Classify("homo_sapiens_core_65_37", adaptor.GroupCore, 66)
	assert.False(t, ok)
}

func TestClassifyCollection(t *testing.T) {
	c := New()

	cl, ok := c.Classify("escherichia_shigella_collection_core_10_65_1", adaptor.GroupCore, 65)
	assert.True(t, ok)
	assert.True(t, cl.Multispecies)
	assert.Equal(t, "escherichia_shigella_collection", cl.EncodedName)
}

func TestClassifyAnyRespectsGroupOrder(t *testing.T) {
	c := New()

	// "homo_sapiens_core_65_37" never matches anything but core, but this
	// exercises the fact that ClassifyAny walks group.Order() and returns
	// on the first hit.
	cl, ok := c.ClassifyAny("homo_sapiens_core_65_37", 65)
	assert.True(t, ok)
	assert.Equal(t, adaptor.GroupCore, cl.Group)
}

func TestClassifyVariation(t *testing.T) {
	c := New()

	cl, ok := c.Classify("homo_sapiens_variation_65_37", adaptor.GroupVariation, 65)
	assert.True(t, ok)
	assert.Equal(t, "homo_sapiens", cl.EncodedName)
}

func TestClassifyUserUploadHasNoVersion(t *testing.T) {
	c := New()

	cl, ok := c.Classify("myuser_userdata", adaptor.GroupUserUpload, 65)
	assert.True(t, ok)
	assert.Equal(t, "myuser", cl.EncodedName)
}

func TestClassifyComparaWithSubname(t *testing.T) {
	c := New()

	cl, ok := c.Classify("ensembl_compara_pan_homology_65", adaptor.GroupCompara, 65)
	assert.True(t, ok)
	assert.Equal(t, "ensembl_compara_pan_homology", cl.EncodedName)

	species, storedGroup := PostProcess(cl)
	assert.Equal(t, adaptor.Species("pan_homology"), species)
	assert.Equal(t, adaptor.GroupCompara, storedGroup)
}

func TestClassifyComparaWithoutSubname(t *testing.T) {
	c := New()

	cl, ok := c.Classify("ensembl_compara_65", adaptor.GroupCompara, 65)
	assert.True(t, ok)

	species, storedGroup := PostProcess(cl)
	assert.Equal(t, adaptor.MultiSpecies, species)
	assert.Equal(t, adaptor.GroupCompara, storedGroup)
}

func TestClassifyOntologyAndStableIds(t *testing.T) {
	c := New()

	cl, ok := c.Classify("ensembl_ontology_65", adaptor.GroupOntology, 65)
	assert.True(t, ok)
	species, storedGroup := PostProcess(cl)
	assert.Equal(t, adaptor.MultiSpecies, species)
	assert.Equal(t, adaptor.GroupOntology, storedGroup)

	cl2, ok := c.Classify("ensembl_stable_ids_65", adaptor.GroupStableIds, 65)
	assert.True(t, ok)
	species2, storedGroup2 := PostProcess(cl2)
	assert.Equal(t, adaptor.MultiSpecies, species2)
	assert.Equal(t, adaptor.GroupStableIds, storedGroup2)
}

func TestClassifyAncestralRewritesToCore(t *testing.T) {
	c := New()

	cl, ok := c.Classify("ensembl_ancestral_65", adaptor.GroupAncestral, 65)
	assert.True(t, ok)

	species, storedGroup := PostProcess(cl)
	assert.Equal(t, adaptor.AncestralSpecies, species)
	assert.Equal(t, adaptor.GroupCore, storedGroup)
}

func TestClassifyCoreNameDoesNotMatchCdna(t *testing.T) {
	c := New()

	// Each group's pattern requires its own literal infix directly before
	// the version suffix, so a name built from the core grammar is not
	// classified as cdna when tried against cdna alone.
	_, ok := c.Classify("homo_sapiens_core_65_37", adaptor.GroupCdna, 65)
	assert.False(t, ok)
}
