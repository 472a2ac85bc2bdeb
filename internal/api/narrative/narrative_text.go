package narrative

import (
	"regexp"
	"strings"
)

var narratorPrompts = []string{
	"Sin frases introductorias ni saludos, narra directamente una curiosidad, historia o anécdota sobre este lugar, en menos de cinco oraciones. Tono cálido y relajado.",
	"Narra directo un dato interesante o leyenda sobre el lugar, en tono amable y breve. No uses frases como 'claro que sí', 'aquí tienes' ni saludos.",
	"Como guía local, relata una historia sobre el lugar, iniciando por el dato, sin frases previas ni presentación ni saludos. Usa máximo ocho oraciones.",
	"Redacta una anécdota breve y diferente sobre este lugar SIN saludos ni frases como 'aquí tienes', 'por supuesto', etc.",
}

var chatInvites = []string{
	"¿Quieres horarios, precios o más detalles? Pregunta en el chatbot de Kamino.",
	"Para información, actividades o consejos, sigue la conversación en nuestro chat.",
	"Descubre aún más usando el chat, puedes preguntar lo que quieras.",
	"¿Tienes dudas específicas? Nuestro chat está listo para ayudarte.",
	"¿Te interesa una recomendación o sabes lo que buscas? El asistente de Kamino te escucha.",
}

var introPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^[¡!]*(claro que sí|por supuesto|con gusto|hola viajero|aquí tienes|te cuento|permíteme contarte|déjame decirte|con alegría|perfecto|hola|estimado viajero|seguro que sí)(?s:.+?)[.!¿?\n]+`),
	regexp.MustCompile(`(?i)^(saludos|buenas.*|[¡!]?hola(\s|,).*)[.!¿?\n]+`),
}

// StripIntro removes leading greeting sentences the model tends to add.
// It keeps the original text when stripping would leave nothing.
func StripIntro(text string) string {
	out := strings.TrimSpace(text)
	for {
		before := out
		for _, re := range introPatterns {
			out = strings.TrimSpace(re.ReplaceAllString(out, ""))
		}
		if out == before {
			break
		}
	}
	if out == "" {
		return strings.TrimSpace(text)
	}
	return out
}
