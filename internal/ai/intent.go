// internal/ai/intent.go
package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"githop/internal/model"
	"githop/internal/scoring"
)

// SearchIntent is a developer search query turned into filters.
type SearchIntent struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Persona  string `json:"persona"`
	Badge    string `json:"badge"`
	Sort     string `json:"sort"`
}

var knownLanguages = []string{
	"Go", "Rust", "Python", "JavaScript", "TypeScript", "Java", "Kotlin", "Swift", "C++", "C#",
	"C", "Ruby", "PHP", "Scala", "Elixir", "Haskell", "Dart", "Zig", "Lua", "Julia", "R",
	"Clojure", "OCaml", "Erlang", "Solidity", "Shell", "Objective-C", "Perl", "Nim", "Crystal",
}

var languageAliases = map[string]string{
	"golang": "Go", "js": "JavaScript", "ts": "TypeScript", "cpp": "C++", "csharp": "C#",
	"node": "JavaScript", "nodejs": "JavaScript", "py": "Python",
}

// Languages whose names collide with everyday words only match when capitalized in the query.
var ambiguousLanguages = map[string]bool{"Go": true, "C": true, "R": true}

var fillerWords = regexp.MustCompile(`(?i)\b(developers?|devs?|engineers?|programmers?|people|users?|experts?|who|that|with|know|knows|in|for|the|a|an|and|of|on|find|show|me|top|best|most|followed|popular|stars?|starred)\b`)

var tokenPattern = regexp.MustCompile(`[A-Za-z][A-Za-z0-9+#\-]*`)

// ParseIntentHeuristic extracts a language, persona, badge and sort order from query with keyword
// rules. Text keeps the words that matched nothing.
func ParseIntentHeuristic(query string) SearchIntent {
	var intent SearchIntent
	rest := query

	for _, tok := range tokenPattern.FindAllString(query, -1) {
		if intent.Language != "" {
			break
		}
		if alias, ok := languageAliases[strings.ToLower(tok)]; ok {
			intent.Language = alias
			rest = removeWord(rest, tok)
			continue
		}
		for _, lang := range knownLanguages {
			if ambiguousLanguages[lang] {
				if tok == lang {
					intent.Language = lang
				}
			} else if strings.EqualFold(tok, lang) {
				intent.Language = lang
			}
			if intent.Language != "" {
				rest = removeWord(rest, tok)
				break
			}
		}
	}

	rules := scoring.DefaultRules()
	if personas := rules.MatchPersonas(query); len(personas) > 0 {
		intent.Persona = string(personas[0])
	}
	for _, b := range rules.DetectBadges(query, "") {
		intent.Badge = string(b.Type)
		break
	}
	if intent.Badge == "" && regexp.MustCompile(`(?i)\b(big tech|faang|maang)\b`).MatchString(query) {
		intent.Badge = string(model.BadgeBigTech)
	}

	lower := strings.ToLower(query)
	switch {
	case strings.Contains(lower, "followed") || strings.Contains(lower, "popular"):
		intent.Sort = "followers"
	case strings.Contains(lower, "star"):
		intent.Sort = "stars"
	}

	if intent.Persona != "" || intent.Badge != "" {
		// Keyword hits are already expressed as filters.
		rest = ""
	}
	rest = fillerWords.ReplaceAllString(rest, " ")
	intent.Text = strings.Join(strings.Fields(rest), " ")
	return intent
}

func removeWord(s, word string) string {
	re := regexp.MustCompile(`(^|\s)` + regexp.QuoteMeta(word) + `(\s|$)`)
	return re.ReplaceAllString(s, " ")
}

func personaList() string {
	names := make([]string, len(model.Personas))
	for i, p := range model.Personas {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}

func badgeList() string {
	names := make([]string, len(model.BadgeTypes))
	for i, b := range model.BadgeTypes {
		names[i] = string(b)
	}
	return strings.Join(names, ", ")
}

// decodeIntent parses a model response and drops values outside the known sets.
func decodeIntent(content string) (SearchIntent, error) {
	var intent SearchIntent
	if err := json.Unmarshal([]byte(content), &intent); err != nil {
		return SearchIntent{}, fmt.Errorf("failed to decode intent: %w", err)
	}
	intent.Persona = strings.ToLower(strings.TrimSpace(intent.Persona))
	if !model.ValidPersona(intent.Persona) {
		intent.Persona = ""
	}
	intent.Badge = strings.ToUpper(strings.TrimSpace(intent.Badge))
	if !model.ValidBadgeType(intent.Badge) {
		intent.Badge = ""
	}
	switch intent.Sort {
	case "followers", "stars":
	default:
		intent.Sort = ""
	}
	intent.Text = strings.TrimSpace(intent.Text)
	intent.Language = strings.TrimSpace(intent.Language)
	return intent, nil
}
