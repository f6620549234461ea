// internal/workers/recommendation/rank-recommendations/reconcile.go
package rankrecommendations

import (
	"strings"

	"apisense/internal/common/config"
	"apisense/internal/models"
)

// Lookup resolves model-supplied identifiers back to candidates. Model output
// is untrusted: ids may be invented and names paraphrased.
type Lookup struct {
	byID    map[string]*models.Candidate
	byName  map[string]*models.Candidate
	byLower map[string]*models.Candidate
	ordered []lowerKey
}

type lowerKey struct {
	key       string
	candidate *models.Candidate
}

// NewLookup indexes candidates by id, exact name and lower-cased name, then
// registers the aliases of every rule whose match text occurs in a
// candidate's name. The first candidate to claim a key keeps it.
func NewLookup(candidates []models.Candidate, aliases []config.AliasRule) *Lookup {
	l := &Lookup{
		byID:    make(map[string]*models.Candidate, len(candidates)),
		byName:  make(map[string]*models.Candidate, len(candidates)),
		byLower: make(map[string]*models.Candidate, len(candidates)),
	}

	for i := range candidates {
		c := &candidates[i]
		if c.ID != "" {
			if _, ok := l.byID[c.ID]; !ok {
				l.byID[c.ID] = c
			}
		}
		if c.Name != "" {
			if _, ok := l.byName[c.Name]; !ok {
				l.byName[c.Name] = c
			}
		}
		l.addLower(strings.ToLower(strings.TrimSpace(c.Name)), c)
	}

	for i := range candidates {
		c := &candidates[i]
		name := strings.ToLower(c.Name)
		for _, rule := range aliases {
			if !matchesAny(name, rule.Match) {
				continue
			}
			for _, alias := range rule.Aliases {
				l.addLower(strings.ToLower(strings.TrimSpace(alias)), c)
			}
		}
	}

	return l
}

func (l *Lookup) addLower(key string, c *models.Candidate) {
	if key == "" {
		return
	}
	if _, ok := l.byLower[key]; ok {
		return
	}
	l.byLower[key] = c
	l.ordered = append(l.ordered, lowerKey{key: key, candidate: c})
}

// Resolve finds the candidate for a recommendation in priority order: exact
// id, exact name, lower-cased name, then the first key that contains the
// name or is contained by it. Returns nil when nothing matches.
func (l *Lookup) Resolve(apiID, apiName string) *models.Candidate {
	if c, ok := l.byID[strings.TrimSpace(apiID)]; ok && apiID != "" {
		return c
	}

	name := strings.TrimSpace(apiName)
	if name == "" {
		return nil
	}
	if c, ok := l.byName[name]; ok {
		return c
	}

	lower := strings.ToLower(name)
	if c, ok := l.byLower[lower]; ok {
		return c
	}
	for _, k := range l.ordered {
		if strings.Contains(k.key, lower) || strings.Contains(lower, k.key) {
			return k.candidate
		}
	}
	return nil
}

func matchesAny(name string, needles []string) bool {
	for _, n := range needles {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" && strings.Contains(name, n) {
			return true
		}
	}
	return false
}
