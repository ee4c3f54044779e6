package ai

import (
	"strings"
	"unicode"
)

// Supported conversation languages.
const (
	LangEnglish  = "en"
	LangHindi    = "hi"
	LangMarathi  = "mr"
	LangGujarati = "gu"
)

// SupportedLanguages is the set of languages the pipeline can listen and
// answer in.
var SupportedLanguages = map[string]struct{}{
	LangEnglish:  {},
	LangHindi:    {},
	LangMarathi:  {},
	LangGujarati: {},
}

// ConfidenceThreshold is the minimum detection confidence that may change the
// session's language. Below it the current language stands.
const ConfidenceThreshold = 0.65

type Detection struct {
	Language   string
	Confidence float64
}

// Detector guesses the caller's language from transcription text. Native
// script is decisive; romanized speech falls back to marker-word counting,
// which is deliberately conservative: an uncertain guess must not flip the
// conversation language mid-call.
type Detector struct {
	markers map[string]map[string]struct{}
}

func NewDetector() *Detector {
	d := &Detector{markers: make(map[string]map[string]struct{})}
	add := func(lang string, words ...string) {
		set := make(map[string]struct{}, len(words))
		for _, w := range words {
			set[w] = struct{}{}
		}
		d.markers[lang] = set
	}
	add(LangEnglish, "the", "is", "are", "you", "what", "how", "please", "want", "need", "can", "have", "will", "this", "that")
	add(LangHindi, "hai", "kya", "aap", "mujhe", "chahiye", "karna", "hain", "mera", "kaise", "nahi", "haan", "batao", "kitna")
	add(LangMarathi, "aahe", "kasa", "kay", "mala", "tumhi", "pahije", "madhe", "zala", "nako", "ho", "kuthe", "kiti")
	add(LangGujarati, "che", "chhe", "kem", "tame", "mane", "joie", "shu", "karvu", "nathi", "ketla", "kya")
	return d
}

// Detect returns the best language guess with a confidence in [0, 1].
func (d *Detector) Detect(text string) Detection {
	if lang, ok := scriptLanguage(text); ok {
		return Detection{Language: lang, Confidence: 0.95}
	}

	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		return Detection{Language: LangEnglish, Confidence: 0}
	}
	best := Detection{Language: LangEnglish}
	for lang, set := range d.markers {
		hits := 0
		for _, tok := range tokens {
			tok = strings.Trim(tok, ".,!?;:\"'")
			if _, ok := set[tok]; ok {
				hits++
			}
		}
		conf := float64(hits) / float64(len(tokens))
		if conf > 1 {
			conf = 1
		}
		if conf > best.Confidence || (conf == best.Confidence && lang == LangEnglish) {
			best = Detection{Language: lang, Confidence: conf}
		}
	}
	return best
}

// scriptLanguage short-circuits detection when the text carries native script.
func scriptLanguage(text string) (string, bool) {
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Gujarati, r):
			return LangGujarati, true
		case unicode.Is(unicode.Devanagari, r):
			// Devanagari is shared by Hindi and Marathi; Marathi markers in
			// the romanized remainder are too rare to matter here, so Hindi
			// wins as the more common case.
			return LangHindi, true
		}
	}
	return "", false
}

// switchPhrases map explicit requests to a target language. An explicit
// request locks the session language for the rest of the call.
var switchPhrases = []struct {
	phrase string
	lang   string
}{
	{"speak in english", LangEnglish},
	{"speak english", LangEnglish},
	{"talk in english", LangEnglish},
	{"english me baat", LangEnglish},
	{"english mein", LangEnglish},
	{"hindi me bolo", LangHindi},
	{"hindi mein bolo", LangHindi},
	{"hindi me baat", LangHindi},
	{"speak hindi", LangHindi},
	{"speak in hindi", LangHindi},
	{"marathi madhe bola", LangMarathi},
	{"marathi madhe", LangMarathi},
	{"speak marathi", LangMarathi},
	{"speak in marathi", LangMarathi},
	{"gujarati ma vaat", LangGujarati},
	{"gujarati ma bolo", LangGujarati},
	{"speak gujarati", LangGujarati},
	{"speak in gujarati", LangGujarati},
}

// DetectSwitch reports an explicit language-switch request in the utterance.
func (d *Detector) DetectSwitch(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, sp := range switchPhrases {
		if strings.Contains(lower, sp.phrase) {
			return sp.lang, true
		}
	}
	return "", false
}
