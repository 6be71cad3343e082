// Package i18n selects hsab's locale-specific error and status strings
// (spec §7, SUPPLEMENTED FEATURES "locale-aware error prefixing"),
// grounded on the teacher's pkg/i18n/i18n.go: jibber_jabber system-locale
// detection, an embedded TranslationSet per language, always merged over
// English so a partial translation still has every field populated.
package i18n

import (
	"github.com/cloudfoundry/jibber_jabber"
	"github.com/imdario/mergo"
	"github.com/sirupsen/logrus"
)

// Localizer pairs a logger with the resolved translation set, the shape
// other packages hold onto for the lifetime of a run.
type Localizer struct {
	Log *logrus.Entry
	S   TranslationSet
}

// GetTranslationSets returns every embedded language's set, keyed by its
// locale code (spec's "about"-equivalent: `hsab --languages` could list
// these keys).
func GetTranslationSets() map[string]TranslationSet {
	return map[string]TranslationSet{
		"en": englishSet(),
		"fr": frenchSet(),
		"pl": polishSet(),
	}
}

// detectLanguage extracts the user's language from the environment via
// langDetector, falling back to "C" (i.e. English) on any error.
func detectLanguage(langDetector func() (string, error)) string {
	if userLang, err := langDetector(); err == nil {
		return userLang
	}
	return "C"
}

// NewTranslationSet resolves language ("auto" detects it from the
// environment) to an embedded TranslationSet, always merged over English
// so every field is populated even for a partial translation.
func NewTranslationSet(log *logrus.Entry, language string) *TranslationSet {
	lang := language
	if lang == "" || lang == "auto" {
		lang = detectLanguage(jibber_jabber.DetectLanguage)
	}
	log.Info("language: " + lang)

	sets := GetTranslationSets()
	set, ok := sets[lang]
	if !ok {
		set = englishSet()
	}

	base := englishSet()
	if err := mergo.Merge(&base, set, mergo.WithOverride); err != nil {
		log.Warnf("failed to merge translation set for %q over English: %v", lang, err)
		return &set
	}
	return &base
}
