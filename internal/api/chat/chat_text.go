package chat

import (
	"regexp"
	"strings"
	"unicode"

	a "github.com/petar-dambovaliev/aho-corasick"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases s, strips accents, turns punctuation into spaces and
// collapses whitespace. Messages, place names, tags and keywords all go
// through it before being compared.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	stripped = strings.ToLower(stripped)
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return r
		}
		return ' '
	}, stripped)
	return strings.Join(strings.Fields(cleaned), " ")
}

// keywords matches any of a set of phrases anywhere in a normalised message.
type keywords struct {
	matcher a.AhoCorasick
}

func newKeywords(phrases ...string) keywords {
	normalized := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if n := Normalize(p); n != "" {
			normalized = append(normalized, n)
		}
	}
	builder := a.NewAhoCorasickBuilder(a.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  false,
	})
	return keywords{matcher: builder.Build(normalized)}
}

func (k keywords) in(message string) bool {
	return len(k.matcher.FindAll(message)) > 0
}

var (
	greetingWords  = newKeywords("hola", "buenas", "qué tal", "hey", "saludos", "hello")
	farewellWords  = newKeywords("adiós", "gracias", "nos vemos", "hasta luego", "bye")
	recommendWords = newKeywords(
		"otros lugares", "recomendación", "recomiéndame", "más lugares",
		"que más visitar", "lugares cercanos", "lugares turísticos",
		"sugerencia", "qué visitar", "lugares para conocer",
	)
	scheduleWords = newKeywords("horario", "abre", "cierran", "cierra", "abierto", "cerrado", "día", "días", "horarios")
	infoWords     = newKeywords("dirección", "ubicación", "categoría", "tags", "etiqueta", "ubicacion")
	priceWords    = newKeywords("costo", "precio", "entrada", "tarifa", "boletos", "admisión", "cuánto cuesta", "valor")
	activityWords = newKeywords("actividades", "evento", "taller", "charla", "recomendación", "programa")
)

// Applied to normalised text, so the alternatives carry no accents.
var curiosityPattern = regexp.MustCompile(`(cuentame|dime|que sabes|hablame|algo interesante|dato curioso|historia).*?(museo|parque|cafe|lugar|sitio|monumento)`)

const (
	answerFarewell          = "¡Hasta pronto! Gracias por explorar Kamino."
	answerGreeting          = "¡Hola! ¿Sobre qué lugar quieres saber más?"
	answerCuriosityFallback = "Este lugar tiene varias cosas interesantes. ¿Te gustaría saber horarios, actividades o historia?"
	answerCuriositySuffix   = "\n¿Quieres saber algo más de este lugar?"
	answerNoPrice           = "No tengo información de precios para este lugar."
	answerNoActivity        = "No tengo actividades registradas para este lugar."
	answerOther             = "Intenta preguntar sobre algún lugar, actividad o recomendación en Kamino. ¡Te ayudo con gusto!"

	promptCuriosity = "Responde con SOLO un dato curioso o interesante sobre este lugar, máximo tres oraciones."
	promptPrice     = "¿Cuál es el precio o tarifa de entrada de este lugar? Responde brevemente."
	promptActivity  = "¿Qué actividades, talleres o eventos ofrece este lugar? Responde solo con lo más destacado, en cinco oraciones."
	promptNarrative = "Responde de forma muy breve y coherente: %s Maximo tres oraciones."
)

var signatures = map[string][]string{
	"schedule": {
		"¡Disfruta tu recorrido y recuerda explorar cada rincón!",
		"Que tengas excelente visita, te esperamos.",
	},
	"info": {
		"¿Te gustaría saber sobre actividades, precio, historia o recomendaciones?",
		"¡Gracias por consultar! ¿Quieres saber más sobre este lugar?",
	},
}

// Model answers often open by pointing at the source document.
var documentPreambles = []*regexp.Regexp{
	regexp.MustCompile(`(?i)seg[uú]n el texto.*?[:\-]\s*`),
	regexp.MustCompile(`(?i)el texto proporciona.*?[:\-]\s*`),
	regexp.MustCompile(`(?i)en este documento.*?[:\-]\s*`),
	regexp.MustCompile(`(?i)el texto.*?no menciona.*?\. ?`),
	regexp.MustCompile(`(?i)de acuerdo al documento.*?[:\-]\s*`),
	regexp.MustCompile(`(?i)la información proporcionada.*?[:\-]\s*`),
	regexp.MustCompile(`(?i)el texto describe.*?[:\-]\s*`),
	regexp.MustCompile(`(?i)documento aportado.*?[:\-]\s*`),
	regexp.MustCompile(`(?i)de acuerdo al texto.*?[:\-]\s*`),
	regexp.MustCompile(`(?i)de acuerdo a la sección.*?[:\-]\s*`),
	regexp.MustCompile(`(?i)el archivo.*?[:\-]\s*`),
}

var blankLines = regexp.MustCompile(`\n{2,}`)

// CleanAnswer drops document-referencing preambles from a grounded answer.
func CleanAnswer(text string) string {
	for _, re := range documentPreambles {
		text = re.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(blankLines.ReplaceAllString(text, "\n"))
}
