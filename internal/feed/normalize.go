package feed

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	postURLPattern = regexp.MustCompile(`https://www\.linkedin\.com/posts/[^\s<"]+`)
	inStatePattern = regexp.MustCompile(`(?i)\b(?:in|from|based in|located in|living in)\s+([A-Za-z]{2})\b`)
)

var stateCodes = map[string]bool{
	"AL": true, "AK": true, "AZ": true, "AR": true, "CA": true, "CO": true,
	"CT": true, "DE": true, "FL": true, "GA": true, "HI": true, "ID": true,
	"IL": true, "IN": true, "IA": true, "KS": true, "KY": true, "LA": true,
	"ME": true, "MD": true, "MA": true, "MI": true, "MN": true, "MS": true,
	"MO": true, "MT": true, "NE": true, "NV": true, "NH": true, "NJ": true,
	"NM": true, "NY": true, "NC": true, "ND": true, "OH": true, "OK": true,
	"OR": true, "PA": true, "RI": true, "SC": true, "SD": true, "TN": true,
	"TX": true, "UT": true, "VT": true, "VA": true, "WA": true, "WV": true,
	"WI": true, "WY": true,
}

// stateNames is ordered roughly by population so the first match wins
// deterministically when a post mentions more than one state.
var stateNames = []struct {
	name string
	code string
}{
	{"california", "CA"}, {"texas", "TX"}, {"florida", "FL"}, {"new york", "NY"},
	{"pennsylvania", "PA"}, {"illinois", "IL"}, {"ohio", "OH"}, {"georgia", "GA"},
	{"north carolina", "NC"}, {"michigan", "MI"}, {"new jersey", "NJ"},
	{"virginia", "VA"}, {"washington", "WA"}, {"arizona", "AZ"}, {"massachusetts", "MA"},
	{"tennessee", "TN"}, {"indiana", "IN"}, {"missouri", "MO"}, {"maryland", "MD"},
	{"wisconsin", "WI"}, {"colorado", "CO"}, {"minnesota", "MN"}, {"south carolina", "SC"},
	{"alabama", "AL"}, {"louisiana", "LA"}, {"kentucky", "KY"}, {"oregon", "OR"},
	{"oklahoma", "OK"}, {"connecticut", "CT"}, {"utah", "UT"}, {"iowa", "IA"},
	{"nevada", "NV"}, {"arkansas", "AR"}, {"mississippi", "MS"}, {"kansas", "KS"},
	{"new mexico", "NM"}, {"nebraska", "NE"}, {"west virginia", "WV"}, {"idaho", "ID"},
	{"hawaii", "HI"}, {"new hampshire", "NH"}, {"maine", "ME"}, {"montana", "MT"},
	{"rhode island", "RI"}, {"delaware", "DE"}, {"south dakota", "SD"}, {"north dakota", "ND"},
	{"alaska", "AK"}, {"vermont", "VT"}, {"wyoming", "WY"},
}

// DefaultRegion is used when no state can be extracted from a post.
const DefaultRegion = "CA"

// ExtractPostURL pulls the LinkedIn post URL out of a feed item, preferring
// the link field, then the description, then falling back to the raw link.
func ExtractPostURL(link, description string) string {
	if m := postURLPattern.FindString(link); m != "" {
		return m
	}
	if m := postURLPattern.FindString(description); m != "" {
		return m
	}
	return link
}

// CanonicalKey normalizes a raw URL into the ledger identity key: scheme and
// host are lowercased, the query string and fragment are dropped, and any
// trailing slash is trimmed. Two raw representations differing only in
// tracking parameters therefore dedup to the same record. Unparseable input
// is used verbatim after whitespace trimming, so dedup still works on exact
// repeats.
func CanonicalKey(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String()
}

// ExtractRegion finds a two-letter state code in free text, first via
// "in CA"-style phrases, then via spelled-out state names. Defaults to
// DefaultRegion when nothing matches.
func ExtractRegion(text string) string {
	// Scan every prepositional match: "from my role in TX" first yields the
	// non-state "my" before the real code.
	for _, m := range inStatePattern.FindAllStringSubmatch(text, -1) {
		code := strings.ToUpper(m[1])
		if stateCodes[code] {
			return code
		}
	}
	lower := strings.ToLower(text)
	for _, s := range stateNames {
		if strings.Contains(lower, s.name) {
			return s.code
		}
	}
	return DefaultRegion
}
