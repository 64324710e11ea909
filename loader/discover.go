package loader

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/andrewyatz/ensembl-registry/adaptor"
	"github.com/andrewyatz/ensembl-registry/registry"
)

const registryEnvVar = "ENSEMBL_REGISTRY"

// DiscoverConfigPath resolves the configuration file to load, per spec.md
// section 6: an explicit path wins if given; otherwise the
// ENSEMBL_REGISTRY environment variable; otherwise $HOME/.ensembl_init.
// It returns "", false if none of the three resolve to an existing file.
func DiscoverConfigPath(explicit string) (string, bool) {
	candidates := []string{explicit, os.Getenv(registryEnvVar)}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".ensembl_init"))
	}

	for _, c := range candidates {
		if c == "" {
			continue
		}
		if _, err := os.Stat(c); err == nil {
			return c, true
		}
	}
	return "", false
}

// LoadDiscoveredConfig resolves a configuration file via DiscoverConfigPath
// and loads it into store, dispatching on file extension: ".ini" and
// ".json" are handled directly; any other extension is out of scope
// (spec.md section 1 excludes the scripted/Perl-eval configuration path)
// and reported as ErrorBadInput.
func LoadDiscoveredConfig(explicit string, store *registry.Store, factories *adaptor.FactoryRegistry) error {
	path, ok := DiscoverConfigPath(explicit)
	if !ok {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return adaptor.NewError(adaptor.ErrorBadInput, "could not read configuration file "+path, err)
	}

	cl := &ConfigLoader{Store: store, Factories: factories}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ini":
		return cl.LoadINI(string(data))
	case ".json":
		return cl.LoadJSON(string(data))
	default:
		return adaptor.NewError(adaptor.ErrorBadInput, "unsupported configuration file extension for "+path, nil)
	}
}
