package i18n

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/language"
)

// Message IDs used outside of templates
const (
	MsgUnknownLabel   = "label.unknown"
	MsgNotFound       = "api.not_found"
	MsgInvalidRequest = "api.invalid_request"
	MsgInternalError  = "api.internal_error"
	MsgDatabaseOff    = "api.database_disabled"
)

// Translator resolves message IDs for the languages found in a locales directory
type Translator struct {
	defaultLang string
	bundle      *goi18n.Bundle
	localizers  map[string]*goi18n.Localizer
}

// NewTranslator loads every <lang>.json in localesDir.
// defaultLang is used for unknown languages and missing messages.
func NewTranslator(defaultLang, localesDir string) (*Translator, error) {
	if defaultLang == "" {
		defaultLang = "en"
	}
	tag, err := language.Parse(defaultLang)
	if err != nil {
		return nil, fmt.Errorf("invalid default language %q: %w", defaultLang, err)
	}

	bundle := goi18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	t := &Translator{
		defaultLang: defaultLang,
		bundle:      bundle,
		localizers:  make(map[string]*goi18n.Localizer),
	}

	files, err := os.ReadDir(localesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read locales directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}
		lang := strings.TrimSuffix(file.Name(), filepath.Ext(file.Name()))
		if _, err := bundle.LoadMessageFile(filepath.Join(localesDir, file.Name())); err != nil {
			return nil, fmt.Errorf("failed to load locale %s: %w", file.Name(), err)
		}
		t.localizers[lang] = goi18n.NewLocalizer(bundle, lang, defaultLang)
	}

	if _, ok := t.localizers[defaultLang]; !ok {
		t.localizers[defaultLang] = goi18n.NewLocalizer(bundle, defaultLang)
	}

	log.Debugf("Loaded locales: %v", t.Languages())
	return t, nil
}

// Languages returns the loaded language codes, sorted
func (t *Translator) Languages() []string {
	langs := make([]string, 0, len(t.localizers))
	for lang := range t.localizers {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Supports reports whether lang has a locale file
func (t *Translator) Supports(lang string) bool {
	_, ok := t.localizers[lang]
	return ok
}

// DefaultLanguage returns the fallback language
func (t *Translator) DefaultLanguage() string {
	return t.defaultLang
}

// Translate returns the message for id in lang, falling back to the default
// language and finally to id itself
func (t *Translator) Translate(lang, id string) string {
	if t == nil {
		return id
	}
	loc, ok := t.localizers[lang]
	if !ok {
		loc = t.localizers[t.defaultLang]
	}
	msg, err := loc.Localize(&goi18n.LocalizeConfig{MessageID: id})
	if err != nil {
		return id
	}
	return msg
}

// LabelFunc returns a function that maps match names to display text in lang.
// Only the unknown sentinel is translated.
func (t *Translator) LabelFunc(lang, unknown string) func(string) string {
	display := unknown
	if t != nil {
		if msg := t.Translate(lang, MsgUnknownLabel); msg != MsgUnknownLabel {
			display = msg
		}
	}
	return func(name string) string {
		if name == unknown {
			return display
		}
		return name
	}
}
