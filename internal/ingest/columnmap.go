package ingest

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"finpipe/internal/core"
)

// ColumnMap maps each canonical field name to the list of source-column
// aliases that may carry it. The first alias present in a file wins.
type ColumnMap map[string][]string

// LoadColumnMap reads the alias map from a YAML file. JSON files work
// too since YAML is a superset. Canonical names and aliases are
// standardized the same way CSV headers are.
func LoadColumnMap(path string) (ColumnMap, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, core.NewUserError(fmt.Sprintf(
			"Missing config file: %s\n"+
				"Create it and map your export's column names to the canonical fields (see the user manual).",
			path))
	}
	if err != nil {
		return nil, fmt.Errorf("read column map: %w", err)
	}

	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, core.NewUserError(fmt.Sprintf(
			"Could not read column map: %s\nError: %v\nFix the file formatting and try again.",
			path, err))
	}

	cm := make(ColumnMap, len(raw))
	for canonical, aliases := range raw {
		std := make([]string, 0, len(aliases))
		for _, a := range aliases {
			std = append(std, standardizeHeader(a))
		}
		cm[strings.ToLower(strings.TrimSpace(canonical))] = std
	}
	return cm, nil
}

// aliasesFor returns the alias list for a canonical field, defaulting to
// the canonical name itself when the map has no entry.
func (cm ColumnMap) aliasesFor(canonical string) []string {
	if aliases, ok := cm[canonical]; ok && len(aliases) > 0 {
		return aliases
	}
	return []string{canonical}
}

// standardizeHeader matches the header treatment applied to CSV files:
// trimmed, lowercased, spaces replaced with underscores.
func standardizeHeader(h string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
}
