package feed

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/cognicore/triplan/pkg/triplan/catalog"
	"github.com/cognicore/triplan/pkg/triplan/config"
)

// column aliases seen on provider listing pages
var columns = map[string]string{
	"id":              "id",
	"kind":            "kind",
	"type":            "kind",
	"provider":        "provider",
	"airline":         "provider",
	"hotel":           "provider",
	"operator":        "provider",
	"origin":          "origin",
	"from":            "origin",
	"departure":       "origin",
	"destination":     "destination",
	"to":              "destination",
	"arrival":         "destination",
	"location":        "location",
	"city":            "location",
	"date":            "date",
	"available from":  "date",
	"until":           "until",
	"available until": "until",
	"price":           "price",
	"rating":          "rating",
	"available":       "available",
}

// ParseHTML imports offers from every table in an HTML page. The first row
// of each table names the columns; a table without a kind column is skipped.
// Rows that do not form a valid offer are skipped with a warning.
func ParseHTML(r io.Reader, log zerolog.Logger) ([]catalog.Offer, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var offers []catalog.Offer
	for ti, table := range findAll(doc, atom.Table) {
		rows := findAll(table, atom.Tr)
		if len(rows) < 2 {
			continue
		}
		header := cells(rows[0])
		fields := make([]string, len(header))
		hasKind := false
		for i, h := range header {
			fields[i] = columns[strings.ToLower(h)]
			hasKind = hasKind || fields[i] == "kind"
		}
		if !hasKind {
			log.Debug().Int("table", ti+1).Msg("skipping table without kind column")
			continue
		}

		for ri, row := range rows[1:] {
			rec, err := record(fields, cells(row))
			if err == nil {
				var o catalog.Offer
				if o, err = rec.Offer(); err == nil {
					offers = append(offers, o)
					continue
				}
			}
			log.Warn().Err(err).Int("table", ti+1).Int("row", ri+2).Msg("skipping invalid offer row")
		}
	}

	if len(offers) == 0 {
		return nil, fmt.Errorf("no offer tables found")
	}
	return offers, nil
}

func record(fields, values []string) (config.OfferRecord, error) {
	var rec config.OfferRecord
	for i, v := range values {
		if i >= len(fields) || v == "" {
			continue
		}
		switch fields[i] {
		case "id":
			rec.ID = v
		case "kind":
			rec.Kind = v
		case "provider":
			rec.Provider = v
		case "origin":
			rec.Origin = v
		case "destination":
			rec.Destination = v
		case "location":
			rec.Location = v
		case "date":
			rec.Date = v
		case "until":
			rec.Until = v
		case "price":
			p, err := parsePrice(v)
			if err != nil {
				return rec, err
			}
			rec.Price = p
		case "rating":
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return rec, fmt.Errorf("rating %q: %w", v, err)
			}
			rec.Rating = f
		case "available":
			a := parseYes(v)
			rec.Available = &a
		}
	}
	return rec, nil
}

// parsePrice keeps the digits of a displayed price such as "₹6,500".
func parsePrice(s string) (int, error) {
	var digits strings.Builder
	for _, r := range s {
		if r == '.' {
			break
		}
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0, fmt.Errorf("price %q has no digits", s)
	}
	return strconv.Atoi(digits.String())
}

func parseYes(s string) bool {
	switch strings.ToLower(s) {
	case "no", "false", "0", "n", "sold out":
		return false
	}
	return true
}

func findAll(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == a {
			out = append(out, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func cells(row *html.Node) []string {
	var out []string
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
			out = append(out, text(c))
		}
	}
	return out
}

func text(n *html.Node) string {
	var buf strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extractText(c)
		}
	}
	extractText(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}
