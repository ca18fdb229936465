package matcher

import (
	"strings"
	"unicode/utf8"

	"github.com/yoockh/yoohealth/internal/models"
)

// Tier is the priority level a topic matched at. Higher is better.
type Tier int

const (
	TierNone Tier = iota
	TierFuzzy
	TierCategoryTag
	TierTitleSubstring
	TierExactTitle
)

func (t Tier) String() string {
	switch t {
	case TierExactTitle:
		return "exact_title"
	case TierTitleSubstring:
		return "title_substring"
	case TierCategoryTag:
		return "category_tag"
	case TierFuzzy:
		return "fuzzy"
	default:
		return "none"
	}
}

const (
	// Terms of this many runes or fewer are dropped as noise.
	maxNoiseTermLen = 2
	// A term must be longer than this to count as a title substring hit.
	// A 4-rune term qualifies, a 3-rune term does not.
	minTitleSubstringLen = 3
	// Fuzzy hits need a positional similarity strictly above this.
	fuzzyThreshold = 0.7
)

// tierPredicate reports whether a topic satisfies a tier for the given
// search terms.
type tierPredicate struct {
	tier  Tier
	match func(terms []string, topic *candidate) bool
}

// tiers is evaluated top to bottom; order is the priority contract.
var tiers = []tierPredicate{
	{TierExactTitle, matchExactTitle},
	{TierTitleSubstring, matchTitleSubstring},
	{TierCategoryTag, matchCategoryTag},
	{TierFuzzy, matchFuzzy},
}

// candidate caches the lower-cased fields of a topic.
type candidate struct {
	topic    *models.HealthTopic
	title    string
	category string
	tags     string
	words    []string
}

func newCandidate(t *models.HealthTopic) *candidate {
	c := &candidate{
		topic:    t,
		title:    strings.ToLower(t.Title),
		category: strings.ToLower(t.Category),
		tags:     strings.ToLower(t.Tags),
	}
	c.words = append(c.words, strings.Fields(c.title)...)
	c.words = append(c.words, strings.Fields(c.category)...)
	for _, tag := range t.TagList() {
		c.words = append(c.words, strings.ToLower(tag))
	}
	return c
}

// SearchTerms lower-cases input, splits it on whitespace and drops terms of
// two runes or fewer.
func SearchTerms(input string) []string {
	fields := strings.Fields(strings.ToLower(input))
	terms := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) > maxNoiseTermLen {
			terms = append(terms, f)
		}
	}
	return terms
}

func matchExactTitle(terms []string, c *candidate) bool {
	for _, term := range terms {
		if term == c.title {
			return true
		}
	}
	return false
}

func matchTitleSubstring(terms []string, c *candidate) bool {
	titleLen := utf8.RuneCountInString(c.title)
	for _, term := range terms {
		termLen := utf8.RuneCountInString(term)
		if termLen > minTitleSubstringLen && strings.Contains(c.title, term) {
			return true
		}
		// the term covers the whole title, e.g. "diabetes," against "diabetes"
		if titleLen > minTitleSubstringLen && termLen >= titleLen && strings.Contains(term, c.title) {
			return true
		}
	}
	return false
}

func matchCategoryTag(terms []string, c *candidate) bool {
	for _, term := range terms {
		if strings.Contains(c.category, term) || (c.tags != "" && strings.Contains(c.tags, term)) {
			return true
		}
	}
	return false
}

func matchFuzzy(terms []string, c *candidate) bool {
	for _, word := range c.words {
		for _, term := range terms {
			if strings.Contains(word, term) || strings.Contains(term, word) {
				return true
			}
			if Similarity(word, term) > fuzzyThreshold {
				return true
			}
		}
	}
	return false
}
