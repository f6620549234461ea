package catalogindex

import (
	"strings"

	"apisense/internal/models"
)

var (
	searchFields    = []string{"name^3", "description^2", "features", "tags"}
	highlightFields = []string{"name", "description", "features"}
)

// BuildSearchQuery renders the search body: a fuzzy multi_match in the must
// clause, hard filters in the filter clause and inactive entries excluded.
func BuildSearchQuery(req SearchRequest) map[string]interface{} {
	var must interface{}
	if q := strings.TrimSpace(req.Query); q != "" {
		must = map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     q,
				"fields":    searchFields,
				"type":      "best_fields",
				"fuzziness": "AUTO",
			},
		}
	} else {
		must = map[string]interface{}{"match_all": map[string]interface{}{}}
	}

	boolQuery := map[string]interface{}{
		"must": []interface{}{must},
		"must_not": []interface{}{
			map[string]interface{}{"term": map[string]interface{}{"is_active": false}},
		},
	}
	if filters := buildFilterClauses(req.Filters); len(filters) > 0 {
		boolQuery["filter"] = filters
	}

	highlight := make(map[string]interface{}, len(highlightFields))
	for _, f := range highlightFields {
		highlight[f] = map[string]interface{}{}
	}

	return map[string]interface{}{
		"size":             req.size(),
		"track_total_hits": true,
		"query":            map[string]interface{}{"bool": boolQuery},
		"highlight":        map[string]interface{}{"fields": highlight},
	}
}

func buildFilterClauses(f models.SearchFilters) []interface{} {
	var clauses []interface{}
	if f.Category != "" {
		clauses = append(clauses, map[string]interface{}{
			"term": map[string]interface{}{"category": f.Category},
		})
	}
	if f.Pricing != "" {
		clauses = append(clauses, map[string]interface{}{
			"term": map[string]interface{}{"pricing": f.Pricing},
		})
	}
	if f.MinRating != nil {
		clauses = append(clauses, map[string]interface{}{
			"range": map[string]interface{}{
				"community_rating": map[string]interface{}{"gte": *f.MinRating},
			},
		})
	}
	return clauses
}
