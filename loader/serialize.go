package loader

import (
	"encoding/json"
	"sort"

	"github.com/andrewyatz/ensembl-registry/adaptor"
	"github.com/andrewyatz/ensembl-registry/registry"
)

// SerializedAdaptor is one adaptor record in the shape Serialize emits.
// Field names match the keys DocumentFromRaw/specFromMap read back, so a
// Serialize -> json.Marshal -> ConfigLoader.LoadJSON round trip is lossless
// for every field it carries.
type SerializedAdaptor struct {
	Species                     string `json:"species"`
	Group                       string `json:"group"`
	Host                        string `json:"host"`
	Port                        int    `json:"port"`
	User                        string `json:"user"`
	Pass                        string `json:"pass,omitempty"`
	DBName                      string `json:"dbname"`
	Driver                      string `json:"driver,omitempty"`
	SpeciesID                   int    `json:"species_id,omitempty"`
	MultispeciesDB              bool   `json:"multispecies_db,omitempty"`
	DisconnectWhenInactive      bool   `json:"disconnect_when_inactive,omitempty"`
	WaitTimeout                 int    `json:"wait_timeout,omitempty"`
	ReconnectWhenConnectionLost bool   `json:"reconnect_when_connection_lost,omitempty"`
}

// SerializedDocument is the JSON shape Serialize produces, matching the
// {"adaptors": [...], "aliases": {...}} contract ConfigLoader.LoadJSON
// consumes, per spec.md section 4.F and section 8's round-trip scenario.
type SerializedDocument struct {
	Adaptors []SerializedAdaptor `json:"adaptors"`
	Aliases  map[string][]string `json:"aliases,omitempty"`
}

// Serialize captures every adaptor and alias currently in store. Aliases
// for a given species are sorted for deterministic output.
func Serialize(store *registry.Store) *SerializedDocument {
	adaptors := store.GetAllDBAdaptors("", "")
	doc := &SerializedDocument{
		Adaptors: make([]SerializedAdaptor, 0, len(adaptors)),
		Aliases:  make(map[string][]string),
	}

	for _, da := range adaptors {
		doc.Adaptors = append(doc.Adaptors, serializeAdaptor(da))

		species := string(da.Species)
		if _, seen := doc.Aliases[species]; seen {
			continue
		}
		if names := sortedAliasNames(store, da.Species); len(names) > 0 {
			doc.Aliases[species] = names
		}
	}

	if len(doc.Aliases) == 0 {
		doc.Aliases = nil
	}

	return doc
}

func serializeAdaptor(da *adaptor.DBAdaptor) SerializedAdaptor {
	return SerializedAdaptor{
		Species:                     string(da.Species),
		Group:                       string(da.Group),
		Host:                        da.Host,
		Port:                        da.Port,
		User:                        da.User,
		Pass:                        da.Pass,
		DBName:                      da.DBName,
		Driver:                      da.Driver,
		SpeciesID:                   da.SpeciesID,
		MultispeciesDB:              da.IsMultispecies,
		DisconnectWhenInactive:      da.DisconnectWhenInactive,
		WaitTimeout:                 int(da.WaitTimeout.Seconds()),
		ReconnectWhenConnectionLost: da.ReconnectWhenLost,
	}
}

func sortedAliasNames(store *registry.Store, species adaptor.Species) []string {
	aliases := store.GetAllAliases(species)
	if len(aliases) == 0 {
		return nil
	}
	names := make([]string, 0, len(aliases))
	for _, a := range aliases {
		names = append(names, string(a))
	}
	sort.Strings(names)
	return names
}

// SerializeJSON is Serialize followed by a json.Marshal, the form a
// caller actually writes to disk.
func SerializeJSON(store *registry.Store) ([]byte, error) {
	return json.Marshal(Serialize(store))
}
