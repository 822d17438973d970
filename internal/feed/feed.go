package feed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cognicore/triplan/pkg/triplan/catalog"
	"github.com/cognicore/triplan/pkg/triplan/catalog/factcatalog"
	"github.com/cognicore/triplan/pkg/triplan/config"
)

// Load reads offers from a feed file, picking the format by extension:
// .jsonl, .html/.htm, .yaml/.yml or .facts.
func Load(path string, log zerolog.Logger) ([]catalog.Offer, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return LoadJSONL(path, log)
	case ".html", ".htm":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		return ParseHTML(f, log)
	case ".yaml", ".yml":
		return config.LoadCatalog(path)
	case ".facts", ".pl":
		kb, err := config.LoadFacts(path)
		if err != nil {
			return nil, err
		}
		return factcatalog.New(kb).Offers()
	}
	return nil, fmt.Errorf("unsupported feed format %q", filepath.Ext(path))
}

// LoadJSONL loads offers from a JSONL file, one offer record per line.
// Malformed lines are skipped with a warning.
func LoadJSONL(path string, log zerolog.Logger) ([]catalog.Offer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	var offers []catalog.Offer
	lines := strings.Split(string(data), "\n")

	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var rec config.OfferRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			log.Warn().Err(err).Str("file", path).Int("line", i+1).Msg("skipping malformed JSON")
			continue
		}
		o, err := rec.Offer()
		if err != nil {
			log.Warn().Err(err).Str("file", path).Int("line", i+1).Msg("skipping invalid offer")
			continue
		}
		offers = append(offers, o)
	}

	if len(offers) == 0 {
		return nil, fmt.Errorf("no valid offers found in %s", path)
	}

	return offers, nil
}
