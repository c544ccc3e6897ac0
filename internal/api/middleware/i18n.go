package middleware

import (
	"facewatch-go/internal/i18n"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Context keys set by I18n
const (
	LanguageKey   = "language"
	TranslatorKey = "translator"
	TranslateKey  = "t"

	sessionLanguageKey = "language"
)

// TranslateFunc resolves a message ID in the request language
type TranslateFunc func(id string) string

// I18n resolves the request language from ?lang=, then the session, then the
// translator default. A supported ?lang= is remembered in the session.
// Requires the sessions middleware to run first.
func I18n(translator *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		lang := c.Query("lang")

		if lang != "" && translator.Supports(lang) {
			session.Set(sessionLanguageKey, lang)
			if err := session.Save(); err != nil {
				log.Debugf("Failed to save language to session: %v", err)
			}
		} else if stored, ok := session.Get(sessionLanguageKey).(string); ok && translator.Supports(stored) {
			lang = stored
		} else {
			lang = translator.DefaultLanguage()
		}

		c.Set(LanguageKey, lang)
		c.Set(TranslatorKey, translator)
		c.Set(TranslateKey, TranslateFunc(func(id string) string {
			return translator.Translate(lang, id)
		}))

		c.Next()
	}
}

// Language returns the language chosen by I18n, or "" when it did not run
func Language(c *gin.Context) string {
	return c.GetString(LanguageKey)
}

// T translates id for the current request. Without the middleware it returns id.
func T(c *gin.Context, id string) string {
	if v, ok := c.Get(TranslateKey); ok {
		if fn, ok := v.(TranslateFunc); ok {
			return fn(id)
		}
	}
	return id
}
