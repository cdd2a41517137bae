package classify

import (
	"strings"
	"unicode"

	"prensa/internal/models"
	"prensa/pkg/textutil"
)

// DefaultTag is the catch-all category for unmappable or unclassifiable
// articles. Reputational, legal and regulatory coverage lands here too,
// which the prompt enforces on the model side.
const DefaultTag = "Corporate Reputation"

// Tags is the closed category set, in display priority order.
var Tags = []string{
	"Consumer & Brand",
	"Music",
	"B2B",
	"SMB",
	"Creator",
	"Product",
	"TnS",
	DefaultTag,
}

// Models answer in Spanish or English depending on the page language.
var sentimentAliases = map[string]string{
	"POSITIVO": models.SentimentPositive,
	"POSITIVA": models.SentimentPositive,
	"POSITIVE": models.SentimentPositive,
	"NEGATIVO": models.SentimentNegative,
	"NEGATIVA": models.SentimentNegative,
	"NEGATIVE": models.SentimentNegative,
	"NEUTRO":   models.SentimentNeutral,
	"NEUTRA":   models.SentimentNeutral,
	"NEUTRAL":  models.SentimentNeutral,
}

// MapSentiment maps a raw model answer onto the closed sentiment set. The
// first alphabetic token is matched exactly against the known aliases, then
// the whole answer is scanned for an alias substring. Unmappable answers
// are neutral.
func MapSentiment(raw string) string {
	if token := firstAlphaToken(raw); token != "" {
		if label, ok := sentimentAliases[strings.ToUpper(token)]; ok {
			return label
		}
	}

	upper := strings.ToUpper(raw)
	for alias, label := range sentimentAliases {
		if strings.Contains(upper, alias) {
			return label
		}
	}

	return models.SentimentNeutral
}

// MapTag maps a raw model answer onto the closed tag set: exact match on
// the trimmed answer first, then a substring scan in priority order.
// Unmappable answers get the default tag.
func MapTag(raw string) string {
	folded := textutil.Fold(raw)

	for _, tag := range Tags {
		if folded == textutil.Fold(tag) {
			return tag
		}
	}

	for _, tag := range Tags {
		if strings.Contains(folded, textutil.Fold(tag)) {
			return tag
		}
	}

	return DefaultTag
}

// firstAlphaToken returns the first run of letters in s.
func firstAlphaToken(s string) string {
	var b strings.Builder

	for _, r := range s {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
			continue
		}

		if b.Len() > 0 {
			break
		}
	}

	return b.String()
}

func sentimentPrompt(text string) string {
	return `ROL

Actua como Analista Senior de PR/Reputacion. Tu unica tarea es determinar si la noticia
es POSITIVA, NEGATIVA o NEUTRA respecto a la reputacion del medio/red social como empresa/plataforma.

INSTRUCCIONES
- Analiza SOLO el texto provisto.
- Responde unicamente con UNA de las tres palabras EXACTAS (en mayusculas): POSITIVO, NEGATIVO o NEUTRO.
- No agregues puntuacion, explicaciones ni ningun otro texto.
- Si no puedes clasificar por falta de informacion, responde EXACTAMENTE: NEUTRO

NOTICIA:
` + text
}

func tagPrompt(text string) string {
	return `ROL
Actua como un Analista de Datos Senior especializado en PR y Reputacion Corporativa de empresas de redes sociales.
Tu unica mision es clasificar la noticia en UNA sola categoria estrategica.

CATEGORIAS DISPONIBLES (elige SOLO UNA)
- ` + strings.Join(Tags, "\n- ") + `

REGLA DE PRIORIDAD
Si la noticia impacta la imagen institucional, legal o regulatoria de la empresa,
la categoria SIEMPRE es: ` + DefaultTag + `

INSTRUCCIONES
1) Analiza la noticia provista abajo.
2) Responde EXACTAMENTE con UNA de las categorias, sin comillas ni texto extra.
3) Si no puedes clasificar, responde EXACTAMENTE: ` + DefaultTag + `

NOTICIA:
` + text
}
