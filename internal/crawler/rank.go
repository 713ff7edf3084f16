package crawler

import (
	neturl "net/url"
	"sort"
	"strings"
)

// Paths ending in these extensions are assets, not pages.
var assetExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".ico",
	".css", ".js", ".mjs",
	".zip", ".gz", ".tar", ".rar", ".7z",
	".woff", ".woff2", ".ttf", ".otf", ".eot",
	".pdf", ".xml", ".json",
}

type rankedPage struct {
	url   string
	score int
}

// selectSubPages picks up to max additional same-host pages from the union
// of sitemap URLs and internal links. Shallow, query-free paths rank first:
// score = -2 for a query string, -1 per non-empty path segment.
func selectSubPages(homepageURL string, candidates []string, max int) []string {
	home, err := neturl.Parse(homepageURL)
	if err != nil {
		return nil
	}
	homeHost := strings.TrimPrefix(strings.ToLower(home.Hostname()), "www.")
	homePath := strings.TrimRight(home.Path, "/")

	seen := map[string]bool{}
	var ranked []rankedPage
	for _, candidate := range candidates {
		u, err := neturl.Parse(candidate)
		if err != nil {
			continue
		}
		host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
		if host != homeHost {
			continue
		}
		path := strings.TrimRight(u.Path, "/")
		if path == homePath || path == "" {
			continue
		}
		if isAssetPath(path) {
			continue
		}

		key := host + path + "?" + u.RawQuery
		if seen[key] {
			continue
		}
		seen[key] = true

		score := 0
		if u.RawQuery != "" {
			score -= 2
		}
		for _, seg := range strings.Split(path, "/") {
			if seg != "" {
				score--
			}
		}
		ranked = append(ranked, rankedPage{url: candidate, score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if len(ranked) > max {
		ranked = ranked[:max]
	}
	urls := make([]string, len(ranked))
	for i, r := range ranked {
		urls[i] = r.url
	}
	return urls
}

func isAssetPath(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range assetExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
