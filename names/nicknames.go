// ABOUTME: Nickname, formal-name and initial compatibility for first and last names
// ABOUTME: Backs the structured gate that keeps different people with shared first names apart
package names

import (
	"strings"
)

// FirstMatch describes how two first names relate.
type FirstMatch int

const (
	FirstIncompatible FirstMatch = iota
	FirstExact
	FirstNickname
	FirstInitial
)

// LastNameThreshold is the minimum similarity for two last names to be treated as the same.
const LastNameThreshold = 80.0

// Each group lists a formal name first, followed by its common short forms.
var nicknameGroups = [][]string{
	{"abigail", "abby", "abbie", "gail"},
	{"alexander", "alex", "al", "sasha", "xander"},
	{"alexandra", "alex", "lexi", "sandra", "sasha"},
	{"andrew", "andy", "drew"},
	{"anthony", "tony"},
	{"barbara", "barb", "babs"},
	{"benjamin", "ben", "benny", "benji"},
	{"catherine", "cathy", "cat", "kate", "katie"},
	{"katherine", "kathy", "kate", "katie", "kat", "kit"},
	{"charles", "charlie", "chuck", "chas"},
	{"christopher", "chris", "topher", "kit"},
	{"christina", "chris", "tina", "christy"},
	{"daniel", "dan", "danny"},
	{"david", "dave", "davey"},
	{"deborah", "deb", "debbie"},
	{"dorothy", "dot", "dottie"},
	{"edward", "ed", "eddie", "ted", "ned"},
	{"elizabeth", "liz", "lizzie", "beth", "betsy", "eliza", "betty"},
	{"frederick", "fred", "freddie"},
	{"gregory", "greg"},
	{"henry", "hank", "harry"},
	{"jacob", "jake"},
	{"james", "jim", "jimmy", "jamie"},
	{"jennifer", "jen", "jenny"},
	{"jessica", "jess", "jessie"},
	{"jonathan", "jon", "jonny"},
	{"john", "johnny", "jack"},
	{"joseph", "joe", "joey"},
	{"joshua", "josh"},
	{"kenneth", "ken", "kenny"},
	{"lawrence", "larry"},
	{"margaret", "maggie", "meg", "peggy", "marge"},
	{"matthew", "matt"},
	{"michael", "mike", "mikey", "mick"},
	{"nathaniel", "nate", "nat"},
	{"nicholas", "nick", "nicky"},
	{"patricia", "pat", "patty", "trish"},
	{"patrick", "pat", "paddy"},
	{"peter", "pete"},
	{"rebecca", "becca", "becky"},
	{"richard", "rich", "rick", "dick", "ricky"},
	{"robert", "rob", "bob", "bobby", "robbie", "bert"},
	{"samantha", "sam", "sammy"},
	{"samuel", "sam", "sammy"},
	{"stephen", "steve", "stevie"},
	{"steven", "steve", "stevie"},
	{"susan", "sue", "suzy"},
	{"theodore", "ted", "teddy", "theo"},
	{"thomas", "tom", "tommy"},
	{"timothy", "tim", "timmy"},
	{"victoria", "vicky", "tori"},
	{"william", "will", "bill", "billy", "liam"},
	{"yonatan", "yoni"},
	{"zachary", "zach", "zack"},
}

var nicknameIndex = buildNicknameIndex()

func buildNicknameIndex() map[string]map[int]bool {
	index := make(map[string]map[int]bool)
	for i, group := range nicknameGroups {
		for _, name := range group {
			if index[name] == nil {
				index[name] = make(map[int]bool)
			}
			index[name][i] = true
		}
	}
	return index
}

// AreNicknames reports whether two first names share a nickname group.
func AreNicknames(a, b string) bool {
	a, b = foldToken(a), foldToken(b)
	if a == "" || b == "" || a == b {
		return false
	}
	for group := range nicknameIndex[a] {
		if nicknameIndex[b][group] {
			return true
		}
	}
	return false
}

// FirstNamesCompatible classifies two first names. Initials are only accepted
// when allowInitial is set, which callers do when both names carry a last name.
func FirstNamesCompatible(a, b string, allowInitial bool) FirstMatch {
	a, b = foldToken(a), foldToken(b)
	if a == "" || b == "" {
		return FirstIncompatible
	}
	if a == b {
		return FirstExact
	}
	if AreNicknames(a, b) {
		return FirstNickname
	}
	if allowInitial && isInitialOf(a, b) {
		return FirstInitial
	}
	return FirstIncompatible
}

// LastNamesCompatible reports whether two last names plausibly belong to the
// same person. The second return value is true when the match is only an initial.
func LastNamesCompatible(a, b string) (bool, bool) {
	a, b = foldToken(a), foldToken(b)
	if a == "" || b == "" {
		return false, false
	}
	if a == b {
		return true, false
	}
	if isInitialOf(a, b) {
		return true, true
	}
	return levenshteinRatio(a, b) >= LastNameThreshold, false
}

func isInitialOf(a, b string) bool {
	if len([]rune(a)) == 1 {
		return strings.HasPrefix(b, a)
	}
	if len([]rune(b)) == 1 {
		return strings.HasPrefix(a, b)
	}
	return false
}

func foldToken(s string) string {
	return strings.Join(Tokenize(s), "")
}
