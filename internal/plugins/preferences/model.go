// Package preferences stores the interface language a user picked in the
// navbar. The choice lives in a long-lived cookie and, for signed-in users
// when the preference database is configured, in MariaDB so it follows them
// to other browsers. It is independent of the session: signing out keeps it.
package preferences

// DefaultLanguage is used when nothing else is known.
const DefaultLanguage = "en"

// cookieName holds the language of the browser.
const cookieName = "ledger_lang"

// cookieMaxAge keeps the choice for a year.
const cookieMaxAge = 365 * 24 * 60 * 60

// supported lists the language codes the interface is translated into.
var supported = map[string]bool{
	"en": true,
	"so": true,
}

// Supported reports whether code is a language the interface offers.
func Supported(code string) bool {
	return supported[code]
}

// LanguageRequest is the navbar selector form.
type LanguageRequest struct {
	Language string `form:"language"`
	ReturnTo string `form:"return_to"`
}
