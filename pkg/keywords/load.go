package keywords

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// Load returns the keyword tables, preferring a YAML file at path when one
// is given. A missing or unparseable file falls back to the built-in tables
// with a warning rather than failing startup; the built-ins are always valid.
func Load(path string) *Tables {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("[Keywords] cannot read %s: %v, using built-in tables", path, err)
		return Default()
	}

	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		log.Printf("[Keywords] cannot parse %s: %v, using built-in tables", path, err)
		return Default()
	}
	if err := t.validate(); err != nil {
		log.Printf("[Keywords] %s rejected: %v, using built-in tables", path, err)
		return Default()
	}
	log.Printf("[Keywords] loaded tables from %s (%d scam categories)", path, len(t.ScamCategories))
	return &t
}

func (t *Tables) validate() error {
	if len(t.ScamCategories) == 0 {
		return fmt.Errorf("no scam categories")
	}
	seen := make(map[string]bool, len(t.ScamCategories))
	for i, c := range t.ScamCategories {
		if c.Name == "" {
			return fmt.Errorf("category %d has no name", i)
		}
		if c.Name == Unclassifiable {
			return fmt.Errorf("the sentinel %q must not be declared as a category", Unclassifiable)
		}
		// Duplicate keywords across categories are allowed; duplicate
		// category names are not.
		if seen[c.Name] {
			return fmt.Errorf("duplicate category %q", c.Name)
		}
		seen[c.Name] = true
	}
	if len(t.HighSignal) == 0 {
		return fmt.Errorf("no high-signal keywords")
	}
	return nil
}
