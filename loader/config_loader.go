package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	log "github.com/Sirupsen/logrus"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/andrewyatz/ensembl-registry/adaptor"
	"github.com/andrewyatz/ensembl-registry/internal/logging"
	"github.com/andrewyatz/ensembl-registry/registry"
)

const (
	configModule       = "CONFIGLOAD"
	defaultSectionName = "default"
)

// ConfigLoader reads a whole-registry configuration from INI or JSON text
// and feeds it through a StructLoader, per spec.md section 4.E. It holds
// no state of its own beyond where to send the result.
type ConfigLoader struct {
	Store     *registry.Store
	Factories *adaptor.FactoryRegistry
	NoCache   bool

	logger *log.Entry
}

func (c *ConfigLoader) log() *log.Entry {
	if c.logger == nil {
		c.logger = logging.GetLogger(configModule)
	}
	return c.logger
}

func (c *ConfigLoader) structLoader() *StructLoader {
	return &StructLoader{Store: c.Store, Factories: c.Factories, NoCache: c.NoCache}
}

// LoadJSON decodes text as a JSON document of the shape
// {"adaptors": [...], "aliases": {...}}. A document with neither key
// present is ErrorBadInput; this is the distinction between a bare "{}"
// and "{\"adaptors\":[]}" described in spec.md section 8.
func (c *ConfigLoader) LoadJSON(text string) error {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return adaptor.NewError(adaptor.ErrorBadInput, "could not parse json configuration", errors.Wrap(err, "json.Unmarshal"))
	}
	doc, err := DocumentFromRaw(raw)
	if err != nil {
		return err
	}
	return c.structLoader().Load(doc)
}

// LoadINI decodes text as an INI document: one section per adaptor, an
// optional [default] section whose keys are merged underneath every other
// section, and an optional "alias" key per section holding either a
// comma-separated list or a Perl-heredoc-style multi-line block
// (alias=<<TOKEN ... TOKEN). An empty document is tolerated as a no-op,
// matching the "missing config file" case described in spec.md section 6.
func (c *ConfigLoader) LoadINI(text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	doc, err := DocumentFromINI(text, c.log())
	if err != nil {
		return err
	}
	return c.structLoader().Load(doc)
}

// DocumentFromINI is the section-to-Document half of LoadINI, split out so
// it can be unit tested without a Store.
func DocumentFromINI(text string, logger *log.Entry) (*Document, error) {
	if logger == nil {
		logger = logging.GetLogger(configModule)
	}

	v := viper.New()
	v.SetConfigType("ini")
	if err := v.ReadConfig(bytes.NewBufferString(collapseHeredocs(text))); err != nil {
		return nil, adaptor.NewError(adaptor.ErrorBadInput, "could not parse ini configuration", errors.Wrap(err, "viper.ReadConfig"))
	}

	settings := v.AllSettings()
	defaults, _ := settings[defaultSectionName].(map[string]interface{})
	delete(settings, defaultSectionName)

	doc := &Document{Aliases: make(map[string][]string)}

	for name, rawSection := range settings {
		section, ok := rawSection.(map[string]interface{})
		if !ok {
			continue
		}
		merged := mergeDefaults(defaults, section)

		groupName := getString(merged, "group")
		speciesName := getString(merged, "species")
		if groupName == "" {
			logger.Warnf("section %q is missing group, skipping", name)
			continue
		}
		if speciesName == "" {
			logger.Warnf("section %q is missing species, skipping", name)
			continue
		}

		doc.Adaptors = append(doc.Adaptors, specFromMap(merged))

		if aliasRaw, ok := merged["alias"]; ok {
			aliases := splitAliasValue(fmt.Sprintf("%v", aliasRaw))
			doc.Aliases[speciesName] = append(doc.Aliases[speciesName], aliases...)
		}
	}

	return doc, nil
}

func mergeDefaults(defaults, section map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(defaults)+len(section))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range section {
		merged[k] = v
	}
	return merged
}

// splitAliasValue accepts either a comma-separated inline alias list or a
// multi-line heredoc block (one alias per line) and returns the trimmed,
// non-empty entries.
func splitAliasValue(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	var fields []string
	if strings.Contains(raw, "\n") {
		fields = strings.Split(raw, "\n")
	} else {
		fields = strings.Split(raw, ",")
	}
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// heredocStart matches a "key = <<TOKEN" opener. ini.v1 (which viper's ini
// support is built on) has no native heredoc syntax, but it does support
// triple-quoted multi-line values, so collapseHeredocs rewrites one into
// the other before the document ever reaches viper.
var heredocStart = regexp.MustCompile(`^(\s*[\w.]+\s*=\s*)<<(\w+)\s*\r?$`)

func collapseHeredocs(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))

	for i := 0; i < len(lines); i++ {
		line := strings.TrimRight(lines[i], "\r")
		m := heredocStart.FindStringSubmatch(line)
		if m == nil {
			out = append(out, lines[i])
			continue
		}

		prefix, token := m[1], m[2]
		i++
		var body []string
		for i < len(lines) {
			bodyLine := strings.TrimRight(lines[i], "\r")
			if strings.TrimSpace(bodyLine) == token {
				break
			}
			body = append(body, bodyLine)
			i++
		}
		out = append(out, prefix+`"""`+strings.Join(body, "\n")+`"""`)
	}

	return strings.Join(out, "\n")
}
