package crawler

import neturl "net/url"

// Query parameters used for cross-site click attribution. Their presence on
// a request marks it as carrying tracking state.
var trackingParams = []string{
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
	"gclid", "dclid", "fbclid", "msclkid", "twclid", "ttclid",
	"igshid", "mc_eid", "yclid", "wbraid", "gbraid",
	"_ga", "_gl", "mkt_tok", "vero_id", "oly_enc_id",
}

// trackingParamsIn returns the tracking parameters present on a URL.
func trackingParamsIn(rawURL string) []string {
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return nil
	}
	query := u.Query()
	var found []string
	for _, p := range trackingParams {
		if query.Has(p) {
			found = append(found, p)
		}
	}
	return found
}
