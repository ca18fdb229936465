package matcher

import (
	"github.com/yoockh/yoohealth/internal/models"
)

// Match is the result of FindBestMatch.
type Match struct {
	Topic *models.HealthTopic
	Tier  Tier
}

// Found reports whether a topic matched.
func (m Match) Found() bool { return m.Topic != nil }

// FindBestMatch returns the first topic, in table order, that satisfies the
// highest tier any topic reaches. It returns a zero Match when no topic
// matches or the input has no usable terms.
func FindBestMatch(input string, topics []models.HealthTopic) Match {
	terms := SearchTerms(input)
	if len(terms) == 0 || len(topics) == 0 {
		return Match{}
	}

	candidates := make([]*candidate, len(topics))
	for i := range topics {
		candidates[i] = newCandidate(&topics[i])
	}

	for _, tp := range tiers {
		for _, c := range candidates {
			if tp.match(terms, c) {
				return Match{Topic: c.topic, Tier: tp.tier}
			}
		}
	}
	return Match{}
}
