package aggregate

import "encoding/json"

// LinkValue holds one or more equally valid values for a platform key.
// It marshals a single value as a bare string and multiple values as an
// array, matching what the UI expects.
type LinkValue []string

func (v LinkValue) MarshalJSON() ([]byte, error) {
	if len(v) == 1 {
		return json.Marshal(v[0])
	}
	return json.Marshal([]string(v))
}

func (v *LinkValue) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*v = LinkValue{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*v = LinkValue(many)
	return nil
}

// Links maps platform keys (bandcamp, soundxyz, twitter, ...) to their
// values. Keys are present only when a non-empty value was found.
type Links map[string]LinkValue

// add appends values under key, skipping empties and duplicates within
// the key. Existing values are never replaced: callers add sources in
// precedence order and the first writer of a key wins.
func (l Links) add(key string, values ...string) {
	for _, v := range values {
		if v == "" {
			continue
		}
		if contains(l[key], v) {
			continue
		}
		l[key] = append(l[key], v)
	}
}

// setIfAbsent writes key only when no higher-precedence source already
// populated it.
func (l Links) setIfAbsent(key, value string) {
	if value == "" {
		return
	}
	if _, ok := l[key]; ok {
		return
	}
	l[key] = LinkValue{value}
}

func contains(vs LinkValue, x string) bool {
	for _, v := range vs {
		if v == x {
			return true
		}
	}
	return false
}

// ---------------------------------------------
// Support categories
// ---------------------------------------------

// Category classifies how much of the money reaches the artist.
type Category string

const (
	CategoryDirect    Category = "direct"    // artist keeps ~100%
	CategoryStreaming Category = "streaming" // passive per-stream payout
	CategoryPurchase  Category = "purchase"  // marketplace fee split
)

// categoryTable is static configuration, not derived data. Platform
// keys with no entry stay in Links but out of the categorized buckets.
var categoryTable = map[string]Category{
	"bandcamp":   CategoryDirect,
	"soundxyz":   CategoryDirect,
	"catalog":    CategoryDirect,
	"spotify":    CategoryStreaming,
	"applemusic": CategoryStreaming,
	"soundcloud": CategoryStreaming,
	"beatport":   CategoryPurchase,
}

// Categorized buckets the link values by support category.
type Categorized struct {
	Direct    []string `json:"direct"`
	Streaming []string `json:"streaming"`
	Purchase  []string `json:"purchase"`
}

func categorize(links Links) Categorized {
	out := Categorized{
		Direct:    []string{},
		Streaming: []string{},
		Purchase:  []string{},
	}
	// Fixed key order keeps the buckets deterministic.
	for _, key := range orderedKeys {
		vs, ok := links[key]
		if !ok {
			continue
		}
		switch categoryTable[key] {
		case CategoryDirect:
			out.Direct = append(out.Direct, vs...)
		case CategoryStreaming:
			out.Streaming = append(out.Streaming, vs...)
		case CategoryPurchase:
			out.Purchase = append(out.Purchase, vs...)
		}
	}
	return out
}

// orderedKeys fixes iteration order for categorization so repeated
// aggregations against unchanged upstreams are byte-identical.
var orderedKeys = []string{
	"official",
	"bandcamp",
	"soundxyz",
	"catalog",
	"spotify",
	"applemusic",
	"soundcloud",
	"beatport",
	"merch",
	"twitter",
	"ethAddress",
	"wikipedia",
	"discogs",
}
