package loader

import (
	"fmt"
	"time"

	"github.com/andrewyatz/ensembl-registry/adaptor"
)

// DocumentFromRaw converts a loosely-typed decoded configuration (as
// produced by viper for INI, or encoding/json for JSON) into the
// normalized Document StructLoader consumes, per spec.md section 4.F's
// contract and section 8's boundary behaviors:
//
//   - raw == nil, or raw has neither an "adaptors" nor an "aliases" key,
//     is ErrorBadInput (this is what makes a bare "{}" JSON document fail
//     while "{\"adaptors\":[]}" succeeds).
//   - a present "adaptors" that isn't an array, or a present "aliases"
//     that isn't an object of string arrays, is ErrorType.
func DocumentFromRaw(raw map[string]interface{}) (*Document, error) {
	if raw == nil {
		return nil, adaptor.NewError(adaptor.ErrorBadInput, "configuration is empty", nil)
	}

	_, hasAdaptors := raw["adaptors"]
	_, hasAliases := raw["aliases"]
	if !hasAdaptors && !hasAliases {
		return nil, adaptor.NewError(adaptor.ErrorBadInput, "configuration document has neither adaptors nor aliases", nil)
	}

	if err := validateRaw(raw); err != nil {
		return nil, err
	}

	doc := &Document{Aliases: make(map[string][]string)}

	if hasAdaptors {
		list, ok := raw["adaptors"].([]interface{})
		if !ok {
			return nil, adaptor.NewError(adaptor.ErrorType, "adaptors must be a list", nil)
		}
		for _, item := range list {
			m, ok := item.(map[string]interface{})
			if !ok {
				return nil, adaptor.NewError(adaptor.ErrorType, "each adaptor must be an object", nil)
			}
			doc.Adaptors = append(doc.Adaptors, specFromMap(m))
		}
	}

	if hasAliases {
		am, ok := raw["aliases"].(map[string]interface{})
		if !ok {
			return nil, adaptor.NewError(adaptor.ErrorType, "aliases must be a map", nil)
		}
		for species, v := range am {
			doc.Aliases[species] = append(doc.Aliases[species], toStringList(v)...)
		}
	}

	return doc, nil
}

func toStringList(v interface{}) []string {
	switch vv := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			out = append(out, fmt.Sprintf("%v", e))
		}
		return out
	case []string:
		return vv
	case string:
		return []string{vv}
	default:
		return nil
	}
}

func specFromMap(m map[string]interface{}) AdaptorSpec {
	spec := AdaptorSpec{
		Species:                     getString(m, "species"),
		Group:                       getString(m, "group"),
		Host:                        getString(m, "host"),
		Port:                        getInt(m, "port"),
		User:                        getString(m, "user"),
		Pass:                        getString(m, "pass"),
		DBName:                      getString(m, "dbname"),
		Driver:                      getString(m, "driver"),
		SpeciesID:                   getInt(m, "species_id"),
		MultispeciesDB:              getBool(m, "multispecies_db"),
		DisconnectWhenInactive:      getBool(m, "disconnect_when_inactive"),
		WaitTimeout:                 time.Duration(getInt(m, "wait_timeout")) * time.Second,
		ReconnectWhenConnectionLost: getBool(m, "reconnect_when_connection_lost"),
		NoCache:                     getBool(m, "no_cache"),
	}
	return spec
}

func getString(m map[string]interface{}, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func getInt(m map[string]interface{}, key string) int {
	v, ok := m[key]
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		var out int
		fmt.Sscanf(n, "%d", &out)
		return out
	default:
		return 0
	}
}

func getBool(m map[string]interface{}, key string) bool {
	v, ok := m[key]
	if !ok || v == nil {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "1" || b == "true" || b == "yes"
	case int:
		return b != 0
	case float64:
		return b != 0
	default:
		return false
	}
}
