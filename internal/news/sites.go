package news

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Site is one news source to crawl.
type Site struct {
	Name string
	URL  string
}

// LoadSites reads a YAML list of single-entry maps, e.g.
//
//	- Reuters: https://www.reuters.com
//	- BBC: https://www.bbc.com/news
//
// The list may also sit under a top-level NewsSites key.
func LoadSites(path string) ([]Site, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSites(data)
}

func ParseSites(data []byte) ([]Site, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("news sites: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}

	node := root.Content[0]
	if node.Kind == yaml.MappingNode {
		var wrapped struct {
			NewsSites yaml.Node `yaml:"NewsSites"`
		}
		if err := node.Decode(&wrapped); err != nil {
			return nil, fmt.Errorf("news sites: %w", err)
		}
		if wrapped.NewsSites.Kind == 0 {
			return nil, errors.New("news sites: expected a list or a NewsSites key")
		}
		node = &wrapped.NewsSites
	}

	var entries []map[string]string
	if err := node.Decode(&entries); err != nil {
		return nil, fmt.Errorf("news sites: %w", err)
	}

	sites := make([]Site, 0, len(entries))
	for i, entry := range entries {
		if len(entry) != 1 {
			return nil, fmt.Errorf("news sites: entry %d: want exactly one name: url pair", i)
		}
		for name, raw := range entry {
			u, err := url.Parse(strings.TrimSpace(raw))
			if err != nil || u.Host == "" {
				return nil, fmt.Errorf("news sites: %s: invalid url %q", name, raw)
			}
			sites = append(sites, Site{Name: strings.TrimSpace(name), URL: u.String()})
		}
	}
	return sites, nil
}
