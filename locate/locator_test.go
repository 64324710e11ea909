package locate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewyatz/ensembl-registry/adaptor"
	"github.com/andrewyatz/ensembl-registry/registry"
)

type fakeConn struct {
	hits    map[string]bool
	queries int
}

func (f *fakeConn) Connect(ctx context.Context) error { return nil }
func (f *fakeConn) Close() error                      { return nil }
func (f *fakeConn) ShowDatabasesLike(ctx context.Context, pattern string) ([]string, error) {
	return nil, nil
}
func (f *fakeConn) Query(ctx context.Context, dbname, query string, args ...interface{}) ([]adaptor.Row, error) {
	f.queries++
	if f.hits[query] {
		return []adaptor.Row{{"1": "1"}}, nil
	}
	return nil, nil
}

type fakeLookup struct {
	species    adaptor.Species
	objectType string
	known      map[string]bool
}

func (f *fakeLookup) Lookup(ctx context.Context, stableID string) (adaptor.Species, string, bool, error) {
	if f.known[stableID] {
		return f.species, f.objectType, true, nil
	}
	return "", "", false, nil
}

func TestLocateFastPathHit(t *testing.T) {
	store := registry.New()
	da := &adaptor.DBAdaptor{Species: "multi", Group: adaptor.GroupStableIds, Host: "h", DBName: "ensembl_stable_ids_65"}
	require.NoError(t, store.AddAdaptor("multi", adaptor.GroupStableIds, da, nil))
	require.NoError(t, store.AddTypedAdaptor("multi", adaptor.GroupStableIds, typedAdaptorKind, &fakeLookup{
		species:    "homo_sapiens",
		objectType: "gene",
		known:      map[string]bool{"ENSG00000139618": true},
	}, nil))

	l := &StableIdLocator{Store: store}
	res, err := l.Locate(context.Background(), "ENSG00000139618", LocateOptions{})
	require.NoError(t, err)
	assert.Equal(t, adaptor.Species("homo_sapiens"), res.Species)
	assert.Equal(t, ObjectGene, res.ObjectType)
}

func TestLocateLinearScanFallbackMatchesFastPathShape(t *testing.T) {
	store := registry.New()

	conn := &fakeConn{hits: map[string]bool{
		"select 1 from gene where stable_id = 'ENSG00000139618'": true,
	}}
	da := &adaptor.DBAdaptor{
		Species: "homo_sapiens", Group: adaptor.GroupCore, Host: "h", DBName: "homo_sapiens_core_65_37", Conn: conn,
	}
	require.NoError(t, store.AddAdaptor("homo_sapiens", adaptor.GroupCore, da, nil))

	l := &StableIdLocator{Store: store}
	res, err := l.Locate(context.Background(), "ENSG00000139618", LocateOptions{})
	require.NoError(t, err)
	assert.Equal(t, adaptor.Species("homo_sapiens"), res.Species)
	assert.Equal(t, adaptor.GroupCore, res.Group)
	assert.Equal(t, ObjectGene, res.ObjectType)
}

func TestLocateComparaUsesGeneTreeOrder(t *testing.T) {
	store := registry.New()
	conn := &fakeConn{hits: map[string]bool{
		"select 1 from gene_tree_node where node_id = 'ENSGT00390000000001'": true,
	}}
	da := &adaptor.DBAdaptor{Species: "multi", Group: adaptor.GroupCompara, Host: "h", DBName: "ensembl_compara_65", Conn: conn}
	require.NoError(t, store.AddAdaptor("multi", adaptor.GroupCompara, da, nil))

	l := &StableIdLocator{Store: store}
	res, err := l.Locate(context.Background(), "ENSGT00390000000001", LocateOptions{KnownGroup: adaptor.GroupCompara})
	require.NoError(t, err)
	assert.Equal(t, ObjectGeneTree, res.ObjectType)
}

func TestLocateDefaultsLinearScanToCoreGroup(t *testing.T) {
	store := registry.New()
	conn := &fakeConn{hits: map[string]bool{
		"select 1 from gene_tree_node where node_id = 'ENSGT00390000000001'": true,
	}}
	da := &adaptor.DBAdaptor{Species: "multi", Group: adaptor.GroupCompara, Host: "h", DBName: "ensembl_compara_65", Conn: conn}
	require.NoError(t, store.AddAdaptor("multi", adaptor.GroupCompara, da, nil))

	l := &StableIdLocator{Store: store}
	_, err := l.Locate(context.Background(), "ENSGT00390000000001", LocateOptions{})
	require.Error(t, err)
	assert.True(t, adaptor.IsCode(err, adaptor.ErrorNotFound))
}

func TestLocateForceLongLookupSkipsFastPath(t *testing.T) {
	store := registry.New()
	fastPathDA := &adaptor.DBAdaptor{Species: "multi", Group: adaptor.GroupStableIds, Host: "h", DBName: "ensembl_stable_ids_65"}
	require.NoError(t, store.AddAdaptor("multi", adaptor.GroupStableIds, fastPathDA, nil))
	require.NoError(t, store.AddTypedAdaptor("multi", adaptor.GroupStableIds, typedAdaptorKind, &fakeLookup{
		species:    "should_not_be_returned",
		objectType: "gene",
		known:      map[string]bool{"ENSG00000139618": true},
	}, nil))

	conn := &fakeConn{hits: map[string]bool{
		"select 1 from gene where stable_id = 'ENSG00000139618'": true,
	}}
	scanDA := &adaptor.DBAdaptor{Species: "homo_sapiens", Group: adaptor.GroupCore, Host: "h", DBName: "homo_sapiens_core_65_37", Conn: conn}
	require.NoError(t, store.AddAdaptor("homo_sapiens", adaptor.GroupCore, scanDA, nil))

	l := &StableIdLocator{Store: store}
	res, err := l.Locate(context.Background(), "ENSG00000139618", LocateOptions{ForceLongLookup: true})
	require.NoError(t, err)
	assert.Equal(t, adaptor.Species("homo_sapiens"), res.Species)
}

func TestLocateKnownSpeciesAndTypeNarrowTheScan(t *testing.T) {
	store := registry.New()
	conn := &fakeConn{hits: map[string]bool{
		"select 1 from transcript where stable_id = 'ENST00000371007'": true,
	}}
	da := &adaptor.DBAdaptor{Species: "homo_sapiens", Group: adaptor.GroupCore, Host: "h", DBName: "homo_sapiens_core_65_37", Conn: conn}
	require.NoError(t, store.AddAdaptor("homo_sapiens", adaptor.GroupCore, da, nil))

	l := &StableIdLocator{Store: store}
	res, err := l.Locate(context.Background(), "ENST00000371007", LocateOptions{
		KnownSpecies: "homo_sapiens",
		KnownGroup:   adaptor.GroupCore,
		KnownType:    ObjectTranscript,
	})
	require.NoError(t, err)
	assert.Equal(t, ObjectTranscript, res.ObjectType)
}

func TestLocateSkipsRepeatVisitToSameMultiSpeciesConnection(t *testing.T) {
	store := registry.New()
	conn := &fakeConn{hits: map[string]bool{}}

	a := &adaptor.DBAdaptor{Species: "escherichia_coli_1", Group: adaptor.GroupCore, Host: "h", Port: 3306, User: "u", DBName: "collection_core_65", Conn: conn, IsMultispecies: true}
	b := &adaptor.DBAdaptor{Species: "escherichia_coli_2", Group: adaptor.GroupCore, Host: "h", Port: 3306, User: "u", DBName: "collection_core_65", Conn: conn, IsMultispecies: true}
	require.NoError(t, store.AddAdaptor(a.Species, a.Group, a, nil))
	require.NoError(t, store.AddAdaptor(b.Species, b.Group, b, nil))

	l := &StableIdLocator{Store: store}
	_, err := l.Locate(context.Background(), "nonexistent", LocateOptions{})
	require.Error(t, err)
	assert.True(t, adaptor.IsCode(err, adaptor.ErrorNotFound))
	// Only the first adaptor's connection is queried, once per object type.
	assert.Equal(t, len(defaultOrder), conn.queries)
}

func TestLocateReturnsNotFound(t *testing.T) {
	store := registry.New()
	l := &StableIdLocator{Store: store}
	_, err := l.Locate(context.Background(), "ENSG00000000000", LocateOptions{})
	require.Error(t, err)
	assert.True(t, adaptor.IsCode(err, adaptor.ErrorNotFound))
}
