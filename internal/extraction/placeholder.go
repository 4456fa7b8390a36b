package extraction

import "strings"

var placeholders = map[string]string{
	"en": "No further explanation was provided for this finding.",
	"es": "No se proporcionó una explicación adicional para este hallazgo.",
	"fr": "Aucune explication supplémentaire n'a été fournie pour ce résultat.",
	"de": "Für diesen Befund wurde keine weitere Erklärung angegeben.",
	"pt": "Nenhuma explicação adicional foi fornecida para este achado.",
}

// Placeholder returns the explanation used when the analyzer gave none,
// in the user's language when supported and English otherwise.
func Placeholder(language string) string {
	lang := strings.ToLower(strings.TrimSpace(language))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	if p, ok := placeholders[lang]; ok {
		return p
	}
	return placeholders["en"]
}
