package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hamed0406/statusoverview/internal/domain"
)

// MonitorsFile is the YAML seed format:
//
//	monitors:
//	  - name: example
//	    url: https://example.com
//	    locations: [eu-west, us-east]
type MonitorsFile struct {
	Monitors []monitorEntry `yaml:"monitors"`
}

type monitorEntry struct {
	ConfigID  string   `yaml:"config_id"`
	QueryID   string   `yaml:"query_id"`
	Name      string   `yaml:"name"`
	URL       string   `yaml:"url"`
	Locations []string `yaml:"locations"`
	// Enabled defaults to true when omitted.
	Enabled *bool `yaml:"enabled"`
}

// LoadMonitors reads monitor definitions from a YAML file.
func LoadMonitors(path string) ([]domain.Monitor, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read monitors file: %w", err)
	}
	var f MonitorsFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse monitors file %s: %w", path, err)
	}
	out := make([]domain.Monitor, 0, len(f.Monitors))
	for i, e := range f.Monitors {
		if e.URL == "" {
			return nil, fmt.Errorf("monitors file %s: entry %d has no url", path, i)
		}
		out = append(out, domain.Monitor{
			ConfigID:  domain.ConfigID(e.ConfigID),
			QueryID:   domain.MonitorID(e.QueryID),
			Name:      e.Name,
			URL:       e.URL,
			Locations: e.Locations,
			Enabled:   e.Enabled == nil || *e.Enabled,
		})
	}
	return out, nil
}
