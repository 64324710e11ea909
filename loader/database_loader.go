package loader

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	log "github.com/Sirupsen/logrus"
	"github.com/rcrowley/go-metrics"

	"github.com/andrewyatz/ensembl-registry/adaptor"
	"github.com/andrewyatz/ensembl-registry/classify"
	"github.com/andrewyatz/ensembl-registry/group"
	"github.com/andrewyatz/ensembl-registry/internal/logging"
	"github.com/andrewyatz/ensembl-registry/registry"
)

const databaseModule = "DBLOAD"

const (
	metaSpeciesQuery = `select species_id, meta_value from meta where meta_key = 'species.production_name'`
	multiAliasQuery  = `select m1.species_id, m2.meta_value from meta m1 join meta m2 on m1.species_id = m2.species_id where m1.meta_key = 'species.production_name' and m2.meta_key = 'species.alias'`
	singleAliasQuery = `select meta_value from meta where meta_key = 'species.alias'`
)

// classifiedMetricName and scanLatencyMetricName build per-group
// rcrowley/go-metrics names tracking how many candidate names classified
// into a given group and how long that group's scan took, mirroring
// registry.Store's counter usage.
func classifiedMetricName(g adaptor.Group) string {
	return "dbload.classified.count." + string(g)
}

func scanLatencyMetricName(g adaptor.Group) string {
	return "dbload.scan.latency." + string(g)
}

// versionKeyAliases lists the misspellings of "version" tolerated by
// ResolveVersionArg, each of which has turned up in real configuration
// files at one time or another.
var versionKeyAliases = []string{"version", "db_version", "dbversion", "verion", "verison"}

// ResolveVersionArg extracts a release version out of a loosely-typed
// argument map, the shape a scripted caller building its own options hash
// is likely to pass in, tolerating the handful of "version" misspellings
// described in spec.md section 9 and logging a correction when one fires.
func ResolveVersionArg(args map[string]interface{}) (int, error) {
	logger := logging.GetLogger(databaseModule)
	for _, key := range versionKeyAliases {
		raw, ok := args[key]
		if !ok {
			continue
		}
		if key != "version" {
			logger.Warnf("correcting misspelled version argument %q", key)
		}
		return getInt(map[string]interface{}{"version": raw}, "version"), nil
	}
	return 0, adaptor.NewError(adaptor.ErrorBadInput, "version is required", nil)
}

// DatabaseLoaderOptions configures one DatabaseLoader.Load call against a
// live server, per spec.md section 4.D.
type DatabaseLoaderOptions struct {
	Host   string
	Port   int
	User   string
	Pass   string
	Driver string

	// Version is the release version every enumerated database name must
	// encode to be picked up.
	Version int

	// Species, if non-empty, restricts which species get registered out of
	// groups that support filtering (group.Filterable).
	Species []string

	// SpeciesSuffix, if non-empty, is appended to every species name this
	// load registers: the adaptor's own species, every harvested alias
	// (both the canonical species and the alias value), and the default
	// aliases injected at the end of the load, per spec.md section 4.D
	// steps 3b-3d.
	SpeciesSuffix string

	NoCache bool

	// Conn is the connection used to enumerate and query the server. It
	// must already be constructed by the caller; this module never dials
	// a real MySQL server itself (spec.md section 1's scoping).
	Conn adaptor.QueryRunner
}

func resolvePort(opts DatabaseLoaderOptions) int {
	port := opts.Port
	if port == 0 {
		port = 3306
	}
	if opts.Host == "ensembldb.ensembl.org" && opts.Version < 48 {
		port = 4306
	}
	return port
}

// suffixSpecies appends suffix to name, the "suffixing each species with
// species_suffix" step spec.md section 4.D steps 3b-3d describe. An empty
// suffix is a no-op.
func suffixSpecies(name string, suffix string) string {
	return name + suffix
}

func normalizeSpeciesFilter(species []string) map[string]bool {
	if len(species) == 0 {
		return nil
	}
	out := make(map[string]bool, len(species))
	for _, s := range species {
		out[string(adaptor.NormalizeSpecies(s))] = true
	}
	return out
}

var (
	classifierOnce   sync.Once
	sharedClassifier *classify.Classifier
)

func defaultClassifier() *classify.Classifier {
	classifierOnce.Do(func() { sharedClassifier = classify.New() })
	return sharedClassifier
}

// DatabaseLoader is component D: it enumerates a live server's databases,
// classifies each name, and registers the adaptors and aliases it finds,
// per spec.md section 4.D.
type DatabaseLoader struct {
	Store      *registry.Store
	Factories  *adaptor.FactoryRegistry
	Classifier *classify.Classifier

	logger *log.Entry
}

func (l *DatabaseLoader) factories() *adaptor.FactoryRegistry {
	if l.Factories != nil {
		return l.Factories
	}
	return adaptor.Factories
}

func (l *DatabaseLoader) classifier() *classify.Classifier {
	if l.Classifier != nil {
		return l.Classifier
	}
	return defaultClassifier()
}

func (l *DatabaseLoader) log() *log.Entry {
	if l.logger == nil {
		l.logger = logging.GetLogger(databaseModule)
	}
	return l.logger
}

// Load connects to opts.Conn, enumerates every database matching the
// target version plus any "userdata%" databases, classifies each one
// against every walked group, and registers what it finds. It closes the
// enumeration connection before returning, per spec.md section 4.D step 6.
func (l *DatabaseLoader) Load(ctx context.Context, opts DatabaseLoaderOptions) error {
	if l.Store == nil {
		return adaptor.NewError(adaptor.ErrorBadInput, "store is required", nil)
	}
	if opts.Host == "" {
		return adaptor.NewError(adaptor.ErrorBadInput, "host is required", nil)
	}
	if err := classify.ValidateVersion(opts.Version); err != nil {
		return adaptor.NewError(adaptor.ErrorBadInput, err.Error(), nil)
	}
	if opts.Conn == nil {
		return adaptor.NewError(adaptor.ErrorBadInput, "a connection is required", nil)
	}

	if err := opts.Conn.Connect(ctx); err != nil {
		return adaptor.NewError(adaptor.ErrorBackend, "could not connect to "+opts.Host, err)
	}
	defer func() {
		if err := opts.Conn.Close(); err != nil {
			l.log().WithError(err).Warn("failed to close enumeration connection")
		}
	}()

	candidates, err := enumerateCandidates(ctx, opts.Conn, opts.Version)
	if err != nil {
		return err
	}

	filter := normalizeSpeciesFilter(opts.Species)
	port := resolvePort(opts)

	for _, g := range group.Order() {
		factory, err := resolveFactory(l.factories(), g)
		if err != nil {
			l.log().WithError(err).Warnf("skipping group %q, adaptor module unavailable", g)
			continue
		}

		counter := metrics.GetOrRegisterCounter(classifiedMetricName(g), metrics.DefaultRegistry)
		timer := metrics.GetOrRegisterTimer(scanLatencyMetricName(g), metrics.DefaultRegistry)

		timer.Time(func() {
			for name := range candidates {
				cl, ok := l.classifier().Classify(name, g, opts.Version)
				if !ok {
					continue
				}
				counter.Inc(1)

				species, storedGroup := classify.PostProcess(cl)

				if cl.Multispecies {
					if err := l.loadMultispecies(ctx, opts, port, name, storedGroup, factory, filter); err != nil {
						l.log().WithError(err).Warnf("failed to load multi-species database %q", name)
					}
					delete(candidates, name)
					continue
				}

				if group.Filterable(storedGroup) && filter != nil && !filter[string(adaptor.NormalizeSpecies(string(species)))] {
					delete(candidates, name)
					continue
				}

				suffixed := adaptor.Species(suffixSpecies(string(species), opts.SpeciesSuffix))
				da := l.buildAdaptor(opts, port, name, suffixed, storedGroup, false, 0)
				if err := l.registerAdaptor(factory, da); err != nil {
					l.log().WithError(err).Warnf("failed to register %s/%s from %q", suffixed, storedGroup, name)
				} else if group.AliasAvailable(storedGroup) {
					l.harvestAliases(ctx, opts, name, []speciesRow{{Species: string(species)}}, false)
				}

				delete(candidates, name)
			}
		})
	}

	l.injectDefaultAliases(opts.SpeciesSuffix)

	return nil
}

func enumerateCandidates(ctx context.Context, conn adaptor.QueryRunner, version int) (map[string]bool, error) {
	versioned, err := conn.ShowDatabasesLike(ctx, fmt.Sprintf("%%_%d%%", version))
	if err != nil {
		return nil, adaptor.NewError(adaptor.ErrorBackend, "could not enumerate databases", err)
	}
	userUploads, err := conn.ShowDatabasesLike(ctx, "userdata%")
	if err != nil {
		return nil, adaptor.NewError(adaptor.ErrorBackend, "could not enumerate user-upload databases", err)
	}

	out := make(map[string]bool, len(versioned)+len(userUploads))
	for _, n := range versioned {
		out[n] = true
	}
	for _, n := range userUploads {
		out[n] = true
	}
	return out, nil
}

type speciesRow struct {
	Species   string
	SpeciesID int
}

func (l *DatabaseLoader) loadMultispecies(ctx context.Context, opts DatabaseLoaderOptions, port int, dbname string, storedGroup adaptor.Group, factory adaptor.Factory, filter map[string]bool) error {
	rows, err := opts.Conn.Query(ctx, dbname, metaSpeciesQuery)
	if err != nil {
		return adaptor.NewError(adaptor.ErrorBackend, "could not query meta table in "+dbname, err)
	}

	species := make([]speciesRow, 0, len(rows))
	for _, row := range rows {
		name := row["meta_value"]
		if name == "" {
			continue
		}
		norm := string(adaptor.NormalizeSpecies(name))
		if filter != nil && !filter[norm] {
			continue
		}
		id, _ := strconv.Atoi(row["species_id"])
		species = append(species, speciesRow{Species: norm, SpeciesID: id})
	}
	if len(species) == 0 {
		return nil
	}

	for _, sp := range species {
		suffixed := adaptor.Species(suffixSpecies(sp.Species, opts.SpeciesSuffix))
		da := l.buildAdaptor(opts, port, dbname, suffixed, storedGroup, true, sp.SpeciesID)
		if err := l.registerAdaptor(factory, da); err != nil {
			l.log().WithError(err).Warnf("failed to register %s/%s from %q", suffixed, storedGroup, dbname)
		}
	}

	if group.AliasAvailable(storedGroup) {
		l.harvestAliases(ctx, opts, dbname, species, true)
	}

	return nil
}

func (l *DatabaseLoader) harvestAliases(ctx context.Context, opts DatabaseLoaderOptions, dbname string, species []speciesRow, multi bool) {
	if len(species) == 0 {
		return
	}
	conn := opts.Conn

	if !multi {
		rows, err := conn.Query(ctx, dbname, singleAliasQuery)
		if err != nil {
			l.log().WithError(err).Warnf("could not harvest aliases from %q", dbname)
			return
		}
		canonical := adaptor.Species(suffixSpecies(species[0].Species, opts.SpeciesSuffix))
		for _, row := range rows {
			if a := row["meta_value"]; a != "" {
				l.Store.AddAlias(canonical, adaptor.Species(suffixSpecies(a, opts.SpeciesSuffix)))
			}
		}
		return
	}

	rows, err := conn.Query(ctx, dbname, multiAliasQuery)
	if err != nil {
		l.log().WithError(err).Warnf("could not harvest aliases from %q", dbname)
		return
	}
	bySpeciesID := make(map[int]string, len(species))
	for _, sp := range species {
		bySpeciesID[sp.SpeciesID] = sp.Species
	}
	for _, row := range rows {
		id, _ := strconv.Atoi(row["species_id"])
		name, ok := bySpeciesID[id]
		if !ok {
			continue
		}
		if a := row["meta_value"]; a != "" {
			canonical := adaptor.Species(suffixSpecies(name, opts.SpeciesSuffix))
			l.Store.AddAlias(canonical, adaptor.Species(suffixSpecies(a, opts.SpeciesSuffix)))
		}
	}
}

func (l *DatabaseLoader) buildAdaptor(opts DatabaseLoaderOptions, port int, dbname string, species adaptor.Species, grp adaptor.Group, multi bool, speciesID int) *adaptor.DBAdaptor {
	return &adaptor.DBAdaptor{
		Species:        species,
		SpeciesID:      speciesID,
		Group:          grp,
		IsMultispecies: multi,
		DBName:         dbname,
		Host:           opts.Host,
		Port:           port,
		User:           opts.User,
		Pass:           opts.Pass,
		Driver:         opts.Driver,
		NoCache:        opts.NoCache,
	}
}

func (l *DatabaseLoader) registerAdaptor(factory adaptor.Factory, da *adaptor.DBAdaptor) error {
	if _, err := factory(da); err != nil {
		return adaptor.NewError(adaptor.ErrorUnavailableModule, "factory failed to instantiate", err)
	}
	return l.Store.AddAdaptor(da.Species, da.Group, da, &registry.AddOptions{Reset: true})
}

// injectDefaultAliases registers the convenience aliases spec.md section
// 4.D step 3d describes: the three multi-species groups can be looked up
// by their own name instead of "multi", and the ancestral-sequences
// pseudo-species gets a conventional lowercase alias (the original's
// "Ancestral sequences" is preserved as the canonical species for
// backward compatibility with stored connection info). Both the alias
// and the canonical species it resolves to get suffix appended, per
// spec.md section 8 scenario 5 (`get_alias("compara_s") == "multi_s"`).
func (l *DatabaseLoader) injectDefaultAliases(suffix string) {
	multi := adaptor.Species(suffixSpecies(string(adaptor.MultiSpecies), suffix))
	ancestral := adaptor.Species(suffixSpecies(string(adaptor.AncestralSpecies), suffix))

	l.Store.AddAlias(multi, adaptor.Species(suffixSpecies(string(adaptor.GroupCompara), suffix)))
	l.Store.AddAlias(multi, adaptor.Species(suffixSpecies(string(adaptor.GroupOntology), suffix)))
	l.Store.AddAlias(multi, adaptor.Species(suffixSpecies(string(adaptor.GroupStableIds), suffix)))
	l.Store.AddAlias(ancestral, adaptor.Species(suffixSpecies("ancestral_sequences", suffix)))
}
