package crawler

import "testing"

func TestTrackingParamsIn(t *testing.T) {
	found := trackingParamsIn("https://example.com/p?utm_source=news&utm_campaign=spring&id=7")
	if len(found) != 2 {
		t.Fatalf("found %d tracking params, want 2: %v", len(found), found)
	}

	if got := trackingParamsIn("https://example.com/p?id=7&page=2"); len(got) != 0 {
		t.Errorf("plain query flagged as tracking: %v", got)
	}

	if got := trackingParamsIn("https://example.com/click?fbclid=abc123"); len(got) != 1 || got[0] != "fbclid" {
		t.Errorf("fbclid not detected: %v", got)
	}
}
