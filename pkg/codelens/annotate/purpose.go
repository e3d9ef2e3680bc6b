package annotate

import (
	"regexp"
	"strings"
	"unicode"
)

type verb struct {
	word   string
	phrase string
}

// verbs maps a leading name word to the phrase describing it.
var verbs = []verb{
	{"get", "Retrieves or calculates"},
	{"set", "Updates or changes"},
	{"is", "Checks if"},
	{"has", "Checks if it contains"},
	{"calc", "Calculates"},
	{"calculate", "Calculates"},
	{"compute", "Computes or calculates"},
	{"create", "Creates a new"},
	{"build", "Constructs"},
	{"make", "Creates"},
	{"generate", "Produces or creates"},
	{"find", "Searches for"},
	{"search", "Searches for"},
	{"parse", "Analyzes and processes"},
	{"format", "Formats or structures"},
	{"convert", "Converts or transforms"},
	{"transform", "Transforms"},
	{"validate", "Validates or checks"},
	{"check", "Checks or verifies"},
	{"handle", "Manages or processes"},
	{"process", "Processes"},
	{"update", "Updates"},
	{"delete", "Removes"},
	{"remove", "Removes"},
	{"add", "Adds"},
	{"insert", "Inserts"},
	{"fetch", "Fetches"},
	{"load", "Loads"},
	{"save", "Saves or persists"},
	{"store", "Stores or saves"},
	{"render", "Displays or renders"},
	{"display", "Shows or displays"},
	{"print", "Outputs or prints"},
	{"log", "Records or logs"},
	{"init", "Initializes"},
	{"initialize", "Sets up initial state"},
	{"setup", "Configures or sets up"},
	{"configure", "Configures"},
	{"start", "Begins or initiates"},
	{"stop", "Stops or terminates"},
	{"pause", "Temporarily halts"},
	{"resume", "Continues after pausing"},
	{"on", "Handles event"},
}

var verbIndex = func() map[string]string {
	m := make(map[string]string, len(verbs))
	for _, v := range verbs {
		m[v.word] = v.phrase
	}
	return m
}()

var returnKinds = []struct {
	kind    string
	pattern *regexp.Regexp
}{
	{"boolean", regexp.MustCompile(`\breturn\s+(?:true|false|True|False|!)`)},
	{"string", regexp.MustCompile("\\breturn\\s+[fbru]?[\"'`]")},
	{"number", regexp.MustCompile(`\breturn\s+-?\d`)},
	{"array", regexp.MustCompile(`\breturn\s+\[`)},
	{"object", regexp.MustCompile(`\breturn\s+(?:\{|new\s+[A-Z]|dict\()`)},
}

var areas = []struct {
	phrase string
	tokens map[string]struct{}
}{
	{"works with the user interface", set("render", "display", "component", "dom", "html", "css", "style", "widget", "button", "innerHTML", "setState")},
	{"communicates with an external API", set("fetch", "axios", "http", "request", "requests", "response", "api", "endpoint", "url")},
	{"responds to events", set("event", "listener", "addEventListener", "onclick", "emit", "subscribe", "callback", "dispatch")},
	{"processes collections of data", set("map", "filter", "reduce", "sort", "sorted", "forEach", "append", "push", "json", "JSON")},
}

var identifier = regexp.MustCompile(`[A-Za-z_$][A-Za-z0-9_$]*`)

// Purpose describes a function from its name and the code of its body.
func Purpose(name string, body []string) string {
	words := SplitWords(name)
	if len(words) == 0 {
		return "Performs an operation."
	}

	var base string
	if phrase, ok := verbIndex[words[0]]; ok {
		if rest := strings.Join(words[1:], " "); rest != "" {
			base = phrase + " " + rest
		} else {
			base = phrase + " data"
		}
	} else {
		base = "Handles " + strings.Join(words, " ") + " functionality"
	}

	parts := []string{base}
	if kind := returnKind(body); kind != "" {
		parts = append(parts, "returns "+kind)
	}
	if area := area(body); area != "" {
		parts = append(parts, area)
	}
	return strings.Join(parts, " and ") + "."
}

// ClassPurpose describes a class-like declaration.
func ClassPurpose(name, kind string) string {
	kind = normalizeKind(kind)
	if name == "" {
		return "Defines a " + kind + "."
	}
	return "Defines the " + name + " " + kind + "."
}

func normalizeKind(kind string) string {
	kind = strings.ToLower(strings.TrimSpace(kind))
	switch {
	case kind == "":
		return "class"
	case strings.HasPrefix(kind, "enum"):
		return "enum"
	case strings.Contains(kind, "class"):
		return "class"
	}
	return kind
}

func returnKind(body []string) string {
	for _, rk := range returnKinds {
		for _, line := range body {
			if rk.pattern.MatchString(line) {
				return rk.kind
			}
		}
	}
	return ""
}

func area(body []string) string {
	tokens := make(map[string]struct{})
	for _, line := range body {
		for _, tok := range identifier.FindAllString(line, -1) {
			tokens[tok] = struct{}{}
		}
	}
	for _, a := range areas {
		for tok := range a.tokens {
			if _, ok := tokens[tok]; ok {
				return a.phrase
			}
		}
	}
	return ""
}

// SplitWords splits an identifier into lower-case words at underscores,
// dashes and camelCase boundaries. "getHTTPResponse" gives
// [get http response].
func SplitWords(name string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}

	runes := []rune(name)
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if unicode.IsUpper(r) && len(cur) > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}

func set(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
