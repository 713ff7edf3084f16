package crawler

import (
	"testing"
)

func TestSelectSubPages_RankingAndLimits(t *testing.T) {
	home := "https://example.com"
	candidates := []string{
		"https://example.com/about",                  // -1
		"https://example.com/blog/2024/post",         // -3
		"https://example.com/pricing",                // -1
		"https://example.com/search?q=x",             // -3 (query + segment)
		"https://example.com/contact",                // -1
		"https://other.com/about",                    // wrong host
		"https://example.com/logo.png",               // asset
		"https://example.com/styles.css",             // asset
		"https://example.com/",                       // homepage
	}

	selected := selectSubPages(home, candidates, 3)
	if len(selected) != 3 {
		t.Fatalf("selected %d pages, want 3", len(selected))
	}
	for _, url := range selected {
		switch url {
		case "https://example.com/about", "https://example.com/pricing", "https://example.com/contact":
		default:
			t.Errorf("selected %q, want one of the shallow query-free pages", url)
		}
	}
}

func TestSelectSubPages_QueryPenalty(t *testing.T) {
	home := "https://example.com"
	selected := selectSubPages(home, []string{
		"https://example.com/a?tracking=1",
		"https://example.com/b",
	}, 1)
	if len(selected) != 1 || selected[0] != "https://example.com/b" {
		t.Errorf("selected %v, want the query-free page first", selected)
	}
}

func TestSelectSubPages_WWWTreatedAsSameHost(t *testing.T) {
	selected := selectSubPages("https://example.com", []string{"https://www.example.com/about"}, 3)
	if len(selected) != 1 {
		t.Errorf("www variant of the crawled host was rejected")
	}
}

func TestSelectSubPages_Deduplicates(t *testing.T) {
	selected := selectSubPages("https://example.com", []string{
		"https://example.com/about",
		"https://example.com/about/",
		"https://www.example.com/about",
	}, 3)
	if len(selected) != 1 {
		t.Errorf("selected %d entries for one logical page, want 1", len(selected))
	}
}

func TestIsAssetPath(t *testing.T) {
	assets := []string{"/img/logo.png", "/app.JS", "/font.woff2", "/doc.pdf", "/sitemap.xml"}
	for _, p := range assets {
		if !isAssetPath(p) {
			t.Errorf("isAssetPath(%q) = false, want true", p)
		}
	}
	pages := []string{"/about", "/blog/post-1", "/pricing.html"}
	for _, p := range pages {
		if isAssetPath(p) {
			t.Errorf("isAssetPath(%q) = true, want false", p)
		}
	}
}
