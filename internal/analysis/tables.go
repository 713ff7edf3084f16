package analysis

import "regexp"

// trackerPattern maps a URL keyword to the company behind it. Matching is
// first-hit substring over the deduplicated script and request URLs.
type trackerPattern struct {
	Keyword  string
	Company  string
	Category string
	Risk     string
}

var trackerPatterns = []trackerPattern{
	{"google-analytics", "Google Analytics", "analytics", "medium"},
	{"googletagmanager", "Google Tag Manager", "tag-manager", "medium"},
	{"doubleclick", "Google DoubleClick", "advertising", "high"},
	{"googlesyndication", "Google AdSense", "advertising", "high"},
	{"googleadservices", "Google Ads", "advertising", "high"},
	{"connect.facebook", "Meta Pixel", "advertising", "high"},
	{"facebook.com/tr", "Meta Pixel", "advertising", "high"},
	{"ads-twitter", "X Ads", "advertising", "high"},
	{"static.ads-twitter", "X Ads", "advertising", "high"},
	{"analytics.tiktok", "TikTok Pixel", "advertising", "high"},
	{"snap.licdn", "LinkedIn Insight", "advertising", "high"},
	{"bat.bing", "Microsoft Advertising", "advertising", "high"},
	{"clarity.ms", "Microsoft Clarity", "session-replay", "high"},
	{"hotjar", "Hotjar", "session-replay", "high"},
	{"fullstory", "FullStory", "session-replay", "high"},
	{"mouseflow", "Mouseflow", "session-replay", "high"},
	{"logrocket", "LogRocket", "session-replay", "high"},
	{"mixpanel", "Mixpanel", "analytics", "medium"},
	{"amplitude", "Amplitude", "analytics", "medium"},
	{"segment.com", "Segment", "analytics", "medium"},
	{"segment.io", "Segment", "analytics", "medium"},
	{"heap.io", "Heap", "analytics", "medium"},
	{"heapanalytics", "Heap", "analytics", "medium"},
	{"matomo", "Matomo", "analytics", "low"},
	{"plausible.io", "Plausible", "analytics", "low"},
	{"criteo", "Criteo", "advertising", "high"},
	{"taboola", "Taboola", "advertising", "high"},
	{"outbrain", "Outbrain", "advertising", "high"},
	{"adroll", "AdRoll", "advertising", "high"},
	{"pubmatic", "PubMatic", "advertising", "high"},
	{"rubiconproject", "Magnite", "advertising", "high"},
	{"casalemedia", "Index Exchange", "advertising", "high"},
	{"amazon-adsystem", "Amazon Advertising", "advertising", "high"},
	{"scorecardresearch", "Comscore", "analytics", "high"},
	{"quantserve", "Quantcast", "advertising", "high"},
	{"branch.io", "Branch", "attribution", "medium"},
	{"appsflyer", "AppsFlyer", "attribution", "medium"},
	{"braze", "Braze", "engagement", "medium"},
	{"klaviyo", "Klaviyo", "engagement", "medium"},
	{"hubspot", "HubSpot", "marketing", "medium"},
	{"hs-scripts", "HubSpot", "marketing", "medium"},
	{"marketo", "Marketo", "marketing", "medium"},
	{"pardot", "Salesforce Pardot", "marketing", "medium"},
	{"intercom", "Intercom", "engagement", "low"},
	{"drift.com", "Drift", "engagement", "low"},
	{"zdassets", "Zendesk", "support", "low"},
	{"onetrust", "OneTrust", "consent", "low"},
	{"cookielaw", "OneTrust", "consent", "low"},
	{"newrelic", "New Relic", "monitoring", "low"},
	{"nr-data.net", "New Relic", "monitoring", "low"},
	{"sentry", "Sentry", "monitoring", "low"},
	{"datadoghq", "Datadog", "monitoring", "low"},
	{"optimizely", "Optimizely", "experimentation", "medium"},
	{"vwo.com", "VWO", "experimentation", "medium"},
	{"crazyegg", "Crazy Egg", "session-replay", "medium"},
	{"yandex.ru/metrika", "Yandex Metrica", "analytics", "high"},
	{"mc.yandex", "Yandex Metrica", "analytics", "high"},
}

// Hosts that serve shared libraries rather than tracking payloads. Excluded
// from tracker detection and script fetching.
var cdnAllowlist = map[string]struct{}{
	"cdnjs.cloudflare.com":   {},
	"cdn.jsdelivr.net":       {},
	"unpkg.com":              {},
	"ajax.googleapis.com":    {},
	"fonts.googleapis.com":   {},
	"fonts.gstatic.com":      {},
	"code.jquery.com":        {},
	"stackpath.bootstrapcdn": {},
	"maxcdn.bootstrapcdn":    {},
	"use.fontawesome.com":    {},
	"kit.fontawesome.com":    {},
	"polyfill.io":            {},
}

// cookieClass is the classification attached to a known cookie name.
type cookieClass struct {
	Company string
	Purpose string // session, analytics, tracking, functional, unknown
	Risk    string // safe, low, medium, high
}

// Known cookie names. Lookup is exact first, then greedy prefix over every
// entry, so short prefixes intentionally over-match.
var knownCookies = map[string]cookieClass{
	"_ga":             {"Google Analytics", "analytics", "medium"},
	"_gid":            {"Google Analytics", "analytics", "medium"},
	"_gat":            {"Google Analytics", "analytics", "low"},
	"_gcl_au":         {"Google Ads", "tracking", "high"},
	"__gads":          {"Google Ads", "tracking", "high"},
	"__gpi":           {"Google Ads", "tracking", "high"},
	"IDE":             {"Google DoubleClick", "tracking", "high"},
	"NID":             {"Google", "tracking", "medium"},
	"_fbp":            {"Meta", "tracking", "high"},
	"_fbc":            {"Meta", "tracking", "high"},
	"fr":              {"Meta", "tracking", "high"},
	"sb":              {"Meta", "tracking", "medium"},
	"_ttp":            {"TikTok", "tracking", "high"},
	"_tt_enable_cookie": {"TikTok", "tracking", "high"},
	"li_sugr":         {"LinkedIn", "tracking", "high"},
	"bcookie":         {"LinkedIn", "tracking", "medium"},
	"UserMatchHistory": {"LinkedIn", "tracking", "high"},
	"MUID":            {"Microsoft", "tracking", "high"},
	"_uetsid":         {"Microsoft Advertising", "tracking", "medium"},
	"_uetvid":         {"Microsoft Advertising", "tracking", "high"},
	"_clck":           {"Microsoft Clarity", "analytics", "medium"},
	"_clsk":           {"Microsoft Clarity", "analytics", "medium"},
	"mp_":             {"Mixpanel", "analytics", "medium"},
	"amplitude_":      {"Amplitude", "analytics", "medium"},
	"ajs_anonymous_id": {"Segment", "analytics", "medium"},
	"ajs_user_id":     {"Segment", "analytics", "medium"},
	"_hjSession":      {"Hotjar", "analytics", "medium"},
	"_hjid":           {"Hotjar", "analytics", "medium"},
	"hubspotutk":      {"HubSpot", "tracking", "medium"},
	"__hstc":          {"HubSpot", "tracking", "medium"},
	"__hssc":          {"HubSpot", "analytics", "low"},
	"intercom-":       {"Intercom", "functional", "low"},
	"cr_":             {"Criteo", "tracking", "high"},
	"uid":             {"Criteo", "tracking", "high"},
	"t_gid":           {"Taboola", "tracking", "high"},
	"_pin_unauth":     {"Pinterest", "tracking", "high"},
	"_scid":           {"Snap", "tracking", "high"},
	"yandexuid":       {"Yandex", "tracking", "high"},
	"_ym_uid":         {"Yandex Metrica", "analytics", "medium"},
	"OptanonConsent":  {"OneTrust", "functional", "safe"},
	"CookieConsent":   {"Cookiebot", "functional", "safe"},
	"PHPSESSID":       {"", "session", "safe"},
	"JSESSIONID":      {"", "session", "safe"},
	"ASP.NET_SessionId": {"", "session", "safe"},
	"csrftoken":       {"", "session", "safe"},
	"XSRF-TOKEN":      {"", "session", "safe"},
	"cf_clearance":    {"Cloudflare", "functional", "safe"},
	"__cf_bm":         {"Cloudflare", "functional", "safe"},
	"AWSALB":          {"Amazon Web Services", "functional", "safe"},
}

// Fallback classification when no name entry matches.
var cookiePatterns = []struct {
	Pattern *regexp.Regexp
	Class   cookieClass
}{
	{regexp.MustCompile(`(?i)^(sess|session|sid)`), cookieClass{"", "session", "safe"}},
	{regexp.MustCompile(`(?i)(csrf|xsrf|token)`), cookieClass{"", "session", "safe"}},
	{regexp.MustCompile(`(?i)(consent|gdpr|ccpa|optout|opt_out)`), cookieClass{"", "functional", "safe"}},
	{regexp.MustCompile(`(?i)(track|visitor|uid|uuid|guid|fingerprint)`), cookieClass{"", "tracking", "medium"}},
	{regexp.MustCompile(`(?i)(analytic|stat|metric)`), cookieClass{"", "analytics", "low"}},
	{regexp.MustCompile(`(?i)(pref|lang|locale|theme|currency)`), cookieClass{"", "functional", "safe"}},
}

// ownerEntry describes the corporation behind an external domain.
type ownerEntry struct {
	Parent   string
	Brand    string
	Color    string
	Category string
}

// Domain ownership. Lookup tries the exact domain, then progressively
// strips leading labels.
var domainOwners = map[string]ownerEntry{
	"google.com":            {"Alphabet", "Google", "#4285F4", "advertising"},
	"googleapis.com":        {"Alphabet", "Google APIs", "#4285F4", "infrastructure"},
	"gstatic.com":           {"Alphabet", "Google Static", "#4285F4", "infrastructure"},
	"google-analytics.com":  {"Alphabet", "Google Analytics", "#E37400", "analytics"},
	"googletagmanager.com":  {"Alphabet", "Google Tag Manager", "#246FDB", "analytics"},
	"doubleclick.net":       {"Alphabet", "DoubleClick", "#4285F4", "advertising"},
	"googlesyndication.com": {"Alphabet", "AdSense", "#4285F4", "advertising"},
	"youtube.com":           {"Alphabet", "YouTube", "#FF0000", "media"},
	"ytimg.com":             {"Alphabet", "YouTube", "#FF0000", "media"},
	"facebook.com":          {"Meta", "Facebook", "#1877F2", "advertising"},
	"facebook.net":          {"Meta", "Facebook SDK", "#1877F2", "advertising"},
	"fbcdn.net":             {"Meta", "Facebook CDN", "#1877F2", "infrastructure"},
	"instagram.com":         {"Meta", "Instagram", "#E4405F", "media"},
	"microsoft.com":         {"Microsoft", "Microsoft", "#00A4EF", "infrastructure"},
	"bing.com":              {"Microsoft", "Bing", "#008373", "advertising"},
	"clarity.ms":            {"Microsoft", "Clarity", "#00A4EF", "analytics"},
	"linkedin.com":          {"Microsoft", "LinkedIn", "#0A66C2", "advertising"},
	"licdn.com":             {"Microsoft", "LinkedIn CDN", "#0A66C2", "infrastructure"},
	"amazon-adsystem.com":   {"Amazon", "Amazon Advertising", "#FF9900", "advertising"},
	"amazonaws.com":         {"Amazon", "AWS", "#FF9900", "infrastructure"},
	"cloudfront.net":        {"Amazon", "CloudFront", "#FF9900", "infrastructure"},
	"twitter.com":           {"X Corp", "Twitter", "#1DA1F2", "advertising"},
	"twimg.com":             {"X Corp", "Twitter CDN", "#1DA1F2", "infrastructure"},
	"ads-twitter.com":       {"X Corp", "X Ads", "#1DA1F2", "advertising"},
	"tiktok.com":            {"ByteDance", "TikTok", "#010101", "advertising"},
	"tiktokcdn.com":         {"ByteDance", "TikTok CDN", "#010101", "infrastructure"},
	"criteo.com":            {"Criteo", "Criteo", "#F48120", "advertising"},
	"criteo.net":            {"Criteo", "Criteo", "#F48120", "advertising"},
	"taboola.com":           {"Taboola", "Taboola", "#004B7A", "advertising"},
	"outbrain.com":          {"Outbrain", "Outbrain", "#F18421", "advertising"},
	"hotjar.com":            {"Contentsquare", "Hotjar", "#FD3A5C", "analytics"},
	"mixpanel.com":          {"Mixpanel", "Mixpanel", "#7856FF", "analytics"},
	"amplitude.com":         {"Amplitude", "Amplitude", "#1E61F0", "analytics"},
	"segment.com":           {"Twilio", "Segment", "#52BD95", "analytics"},
	"segment.io":            {"Twilio", "Segment", "#52BD95", "analytics"},
	"hubspot.com":           {"HubSpot", "HubSpot", "#FF7A59", "marketing"},
	"hs-scripts.com":        {"HubSpot", "HubSpot", "#FF7A59", "marketing"},
	"salesforce.com":        {"Salesforce", "Salesforce", "#00A1E0", "marketing"},
	"pardot.com":            {"Salesforce", "Pardot", "#00A1E0", "marketing"},
	"adobe.com":             {"Adobe", "Adobe", "#FA0F00", "marketing"},
	"omtrdc.net":            {"Adobe", "Adobe Analytics", "#FA0F00", "analytics"},
	"demdex.net":            {"Adobe", "Adobe Audience Manager", "#FA0F00", "advertising"},
	"cloudflare.com":        {"Cloudflare", "Cloudflare", "#F38020", "infrastructure"},
	"cloudflareinsights.com": {"Cloudflare", "Cloudflare Insights", "#F38020", "analytics"},
	"newrelic.com":          {"New Relic", "New Relic", "#008C99", "monitoring"},
	"nr-data.net":           {"New Relic", "New Relic", "#008C99", "monitoring"},
	"sentry.io":             {"Sentry", "Sentry", "#362D59", "monitoring"},
	"datadoghq.com":         {"Datadog", "Datadog", "#632CA6", "monitoring"},
	"intercom.io":           {"Intercom", "Intercom", "#1F8DED", "engagement"},
	"stripe.com":            {"Stripe", "Stripe", "#635BFF", "payments"},
	"paypal.com":            {"PayPal", "PayPal", "#003087", "payments"},
	"shopify.com":           {"Shopify", "Shopify", "#96BF48", "commerce"},
	"yandex.ru":             {"Yandex", "Yandex", "#FC3F1D", "analytics"},
	"scorecardresearch.com": {"Comscore", "Comscore", "#C8102E", "analytics"},
	"quantserve.com":        {"Quantcast", "Quantcast", "#000000", "advertising"},
	"onetrust.com":          {"OneTrust", "OneTrust", "#6CC04A", "consent"},
	"cookielaw.org":         {"OneTrust", "OneTrust", "#6CC04A", "consent"},
}
