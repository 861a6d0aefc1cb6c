// Package verbs derives the third-person and gerund forms used to name
// action lifecycle events (deploy -> deploys -> deploying).
package verbs

import "strings"

// Conjugation holds the three forms of an action verb.
type Conjugation struct {
	Action   string // base form: "deploy"
	Act      string // third person singular: "deploys"
	Activity string // gerund: "deploying"
}

// knownVerbs covers irregular and ambiguous verbs the rules below would get
// wrong or that are common enough to pin down explicitly.
var knownVerbs = map[string]Conjugation{
	"run":      {"run", "runs", "running"},
	"fetch":    {"fetch", "fetches", "fetching"},
	"publish":  {"publish", "publishes", "publishing"},
	"process":  {"process", "processes", "processing"},
	"sync":     {"sync", "syncs", "syncing"},
	"deploy":   {"deploy", "deploys", "deploying"},
	"build":    {"build", "builds", "building"},
	"write":    {"write", "writes", "writing"},
	"set":      {"set", "sets", "setting"},
	"get":      {"get", "gets", "getting"},
	"put":      {"put", "puts", "putting"},
	"do":       {"do", "does", "doing"},
	"go":       {"go", "goes", "going"},
	"fix":      {"fix", "fixes", "fixing"},
	"analyze":  {"analyze", "analyzes", "analyzing"},
	"generate": {"generate", "generates", "generating"},
}

// Conjugate derives the act and activity forms of a base verb. Irregulars
// come from the known-verbs table; everything else follows English
// inflection rules.
func Conjugate(verb string) Conjugation {
	v := strings.ToLower(strings.TrimSpace(verb))
	if v == "" {
		return Conjugation{}
	}
	if c, ok := knownVerbs[v]; ok {
		return c
	}
	return Conjugation{
		Action:   v,
		Act:      thirdPerson(v),
		Activity: gerund(v),
	}
}

func isVowel(b byte) bool {
	switch b {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}

// thirdPerson applies, in order: consonant+y -> ies; sibilant ending -> es;
// otherwise -> s.
func thirdPerson(v string) string {
	n := len(v)
	if n >= 2 && v[n-1] == 'y' && !isVowel(v[n-2]) {
		return v[:n-1] + "ies"
	}
	switch {
	case strings.HasSuffix(v, "s"),
		strings.HasSuffix(v, "x"),
		strings.HasSuffix(v, "z"),
		strings.HasSuffix(v, "ch"),
		strings.HasSuffix(v, "sh"):
		return v + "es"
	}
	return v + "s"
}

// gerund applies, in order: ie -> ying; final e (but not ee) dropped; short
// consonant-vowel-consonant form doubles the final consonant; otherwise ing
// is appended. The drop-e rule deliberately runs before consonant doubling.
func gerund(v string) string {
	n := len(v)
	if strings.HasSuffix(v, "ie") {
		return v[:n-2] + "ying"
	}
	if strings.HasSuffix(v, "e") && !strings.HasSuffix(v, "ee") {
		return v[:n-1] + "ing"
	}
	if n == 3 && !isVowel(v[0]) && isVowel(v[1]) && !isVowel(v[2]) && !strings.ContainsRune("wxy", rune(v[2])) {
		return v + string(v[2]) + "ing"
	}
	return v + "ing"
}
