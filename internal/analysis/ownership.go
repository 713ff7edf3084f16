package analysis

import (
	"sort"
	"strings"

	"github.com/ternarybob/privascan/internal/models"
)

// lookupOwner finds the corporation behind a domain, trying the exact name
// then progressively stripping leading labels.
func lookupOwner(domain string) (ownerEntry, bool) {
	domain = strings.ToLower(domain)
	for domain != "" {
		if entry, ok := domainOwners[domain]; ok {
			return entry, true
		}
		dot := strings.Index(domain, ".")
		if dot < 0 {
			break
		}
		domain = domain[dot+1:]
	}
	return ownerEntry{}, false
}

// buildOwnershipGraph groups the site's external domains by parent
// corporation and computes concentration stats.
func buildOwnershipGraph(siteHost string, domains []string) models.OwnershipGraph {
	type group struct {
		entry   ownerEntry
		brands  map[string]bool
		domains []string
	}
	groups := map[string]*group{}
	identified := 0

	for _, domain := range domains {
		entry, ok := lookupOwner(domain)
		if !ok {
			continue
		}
		identified++
		g, exists := groups[entry.Parent]
		if !exists {
			g = &group{entry: entry, brands: map[string]bool{}}
			groups[entry.Parent] = g
		}
		g.brands[entry.Brand] = true
		g.domains = append(g.domains, domain)
	}

	parents := make([]string, 0, len(groups))
	for parent := range groups {
		parents = append(parents, parent)
	}
	// Largest domain footprint first; ties alphabetical for determinism.
	sort.Slice(parents, func(i, j int) bool {
		a, b := groups[parents[i]], groups[parents[j]]
		if len(a.domains) != len(b.domains) {
			return len(a.domains) > len(b.domains)
		}
		return parents[i] < parents[j]
	})

	graph := models.OwnershipGraph{
		Stats: models.OwnershipStats{
			TotalCompanies:    len(groups),
			IdentifiedDomains: identified,
			UnknownDomains:    len(domains) - identified,
			CategoryBreakdown: map[string]int{},
		},
	}

	topDomains := 0
	for i, parent := range parents {
		g := groups[parent]
		brands := make([]string, 0, len(g.brands))
		for brand := range g.brands {
			brands = append(brands, brand)
		}
		sort.Strings(brands)
		sort.Strings(g.domains)

		graph.Nodes = append(graph.Nodes, models.OwnershipNode{
			Parent:   parent,
			Brands:   brands,
			Domains:  g.domains,
			Category: g.entry.Category,
			Color:    g.entry.Color,
		})
		graph.Edges = append(graph.Edges, models.OwnershipEdge{From: siteHost, To: parent})
		graph.Stats.CategoryBreakdown[g.entry.Category] += len(g.domains)

		if i < 3 {
			graph.Stats.TopCompanies = append(graph.Stats.TopCompanies, parent)
			topDomains += len(g.domains)
		}
	}

	if len(domains) > 0 {
		graph.Stats.CorporateConcentration = int(float64(topDomains)/float64(len(domains))*100 + 0.5)
	}
	return graph
}
