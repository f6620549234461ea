package importer

import "strings"

type keywordRule struct {
	category string
	keywords []string
}

// categoryRules are checked in order; the first rule with a matching keyword
// wins, so the broad "development" rule stays last.
var categoryRules = []keywordRule{
	{"travel", []string{"hotel", "booking", "travel", "flight", "vacation", "tourism", "accommodation", "rental"}},
	{"weather", []string{"weather", "climate", "forecast", "meteorolog"}},
	{"finance", []string{"stock", "finance", "trading", "crypto", "currency", "exchange", "payment", "bank"}},
	{"maps", []string{"map", "location", "geocod", "navigation", "address"}},
	{"social", []string{"social", "twitter", "facebook", "instagram", "linkedin"}},
	{"news", []string{"news", "article", "headline", "journal"}},
	{"sports", []string{"sport", "football", "soccer", "basketball", "nba", "nfl"}},
	{"gaming", []string{"game", "gaming", "player", "steam", "xbox", "playstation"}},
	{"music", []string{"music", "song", "audio", "spotify", "sound", "lyrics"}},
	{"video", []string{"video", "youtube", "movie", "film", "tv", "streaming"}},
	{"food", []string{"food", "recipe", "restaurant", "drink", "nutrition"}},
	{"transportation", []string{"transport", "transit", "train", "bus", "airport"}},
	{"health", []string{"health", "medical", "covid", "disease", "symptom"}},
	{"education", []string{"education", "university", "learn", "course"}},
	{"government", []string{"government", "open data", "census", "official"}},
	{"security", []string{"security", "cybersecurity", "vulnerability", "malware"}},
	{"development", []string{"api", "development", "developer", "code", "github"}},
}

const defaultCategory = "general"

var featureRules = []struct {
	feature  string
	keywords []string
}{
	{"Real-time data", []string{"real-time", "realtime"}},
	{"Historical data", []string{"historical"}},
	{"Search functionality", []string{"search"}},
	{"Free tier available", []string{"free"}},
}

const defaultFeature = "API access"

var tagKeywords = []string{
	"weather", "finance", "map", "social", "news", "sports", "game",
	"music", "video", "food", "transport", "health", "education",
	"government", "security", "data", "api", "free", "real-time",
}

const defaultTag = "api"

// Category picks the first category whose keyword occurs in name or
// description. Matching is substring based, so "map" also hits "bitmap".
func Category(name, description string) string {
	text := strings.ToLower(name + " " + description)
	for _, rule := range categoryRules {
		if containsAny(text, rule.keywords) {
			return rule.category
		}
	}
	return defaultCategory
}

// Features derives feature labels from the description alone.
func Features(description string) []string {
	text := strings.ToLower(description)
	var features []string
	for _, rule := range featureRules {
		if containsAny(text, rule.keywords) {
			features = append(features, rule.feature)
		}
	}
	if len(features) == 0 {
		return []string{defaultFeature}
	}
	return features
}

// Tags lists every tag keyword found in name or description.
func Tags(name, description string) []string {
	text := strings.ToLower(name + " " + description)
	var tags []string
	for _, kw := range tagKeywords {
		if strings.Contains(text, kw) {
			tags = append(tags, kw)
		}
	}
	if len(tags) == 0 {
		return []string{defaultTag}
	}
	return tags
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
