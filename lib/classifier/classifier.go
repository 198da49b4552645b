// Package classifier maps a movie's free text and genre tags to a coarse
// subject category. It is a first-match-wins evaluation of an ordered rule
// table; both the rule order and their keyword lists are data, not control
// flow, so they can be inspected and tested on their own.
//
// Matching is deliberately naive substring containment on lowercased text. It
// inherits known false positives ("war" inside "warehouse" matches); fixing
// that would change the categorization of the existing corpus, so the
// behavior is kept.
package classifier

import "strings"

// pronounMarkers, found in the leading text, indicate a narrative about a
// person rather than an event.
var pronounMarkers = []string{"he ", "she ", "his ", "her ", "him "}

// pronounWindow is how much of the leading text the pronoun check examines.
const pronounWindow = 500

// Subject is the full classifier verdict for one movie.
type Subject struct {
	Category   Category
	Occupation *string
	IsPerson   bool
}

// input carries the lowercased match targets through rule evaluation.
type input struct {
	title string
	text  string
	tags  string
}

func contains(haystack, needle string) bool {
	return strings.Contains(haystack, needle)
}

// pronounFree reports whether the first pronounWindow characters of text
// contain none of the pronoun markers. Markers only count at the start of a
// word: "the facility" must not read as "he ".
func pronounFree(text string) bool {
	lead := text
	if len(lead) > pronounWindow {
		lead = lead[:pronounWindow]
	}
	lead = " " + lead
	for _, marker := range pronounMarkers {
		if strings.Contains(lead, " "+marker) {
			return false
		}
	}
	return true
}

func (r Rule) matches(in input) bool {
	for _, kw := range r.Keywords {
		if contains(in.text, kw) {
			return true
		}
	}
	for _, kw := range r.TitleKeywords {
		if contains(in.title, kw) {
			return true
		}
	}
	return r.Extra != nil && r.Extra(in)
}

// occupation returns the finer label for the first occupation keyword found
// in the text, or nil.
func (r Rule) occupation(in input) *string {
	for _, occ := range r.Occupations {
		if contains(in.text, occ.Keyword) {
			label := occ.Label
			return &label
		}
	}
	return nil
}

// Classify returns the subject category for a movie given its title, free
// text (plot summary or overview), and comma-separated genre tags. With no
// text to judge it returns Unknown; when no rule matches it returns Other.
// Classify is a pure function: identical inputs always yield the same result.
func Classify(title, freeText, tags string) Category {
	return ClassifySubject(title, freeText, tags).Category
}

// ClassifySubject is the full variant of Classify: alongside the category it
// derives an occupation label from the winning rule's keyword set and flags
// whether the movie is about a person. The flag is false only for Historical
// Events.
func ClassifySubject(title, freeText, tags string) Subject {
	if strings.TrimSpace(freeText) == "" {
		return Subject{Category: Unknown, IsPerson: true}
	}

	in := input{
		title: strings.ToLower(title),
		text:  strings.ToLower(freeText),
		tags:  strings.ToLower(tags),
	}

	for _, rule := range rules {
		if !rule.matches(in) {
			continue
		}
		return Subject{
			Category:   rule.Category,
			Occupation: rule.occupation(in),
			IsPerson:   rule.Category != HistoricalEvents,
		}
	}

	return Subject{Category: Other, IsPerson: true}
}
