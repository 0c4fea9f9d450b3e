package chat

import (
	"regexp"
	"strings"

	"github.com/contabot/contabot/engine/chat/intent"
)

// SystemPreamble seeds every conversation.
const SystemPreamble = "Eres un asistente útil. Responde en español, de forma clara y concisa."

// GreetingReply is the canned answer for pure social openers. It never
// goes through the generator.
const GreetingReply = "Hola, ¿en qué te puedo ayudar?"

// generationFailureReply is shown when the generator call fails. The
// turn is not retried.
const generationFailureReply = "Lo siento, no pude generar una respuesta en este momento. Revisa tu API key o inténtalo de nuevo."

// greetingPattern runs against normalized (lowercased, diacritic-free)
// text, so accented variants collapse into these words.
var greetingPattern = regexp.MustCompile(`\b(hola|hello|hi|buenas|buenos dias|buenas tardes|buenas noches|o?ye|que tal)\b`)

// IsGreeting reports whether the message is a social opener.
func IsGreeting(message string) bool {
	return greetingPattern.MatchString(intent.Normalize(message))
}

// accountingVocabulary classifies domain relevance. Terms are
// normalized, matched by containment.
var accountingVocabulary = []string{
	"factura",
	"facturas",
	"iva",
	"irpf",
	"impuesto",
	"impuestos",
	"gasto",
	"gastos",
	"ingreso",
	"ingresos",
	"balance",
	"contabilidad",
	"contable",
	"declaracion",
	"modelo 303",
	"modelo 130",
	"modelo 390",
	"retencion",
	"retenciones",
	"amortizacion",
	"nomina",
	"nominas",
	"autonomo",
	"autonomos",
	"hacienda",
	"trimestre",
	"trimestral",
	"ejercicio fiscal",
	"asiento",
	"asientos",
	"deduccion",
	"deducible",
	"extracto",
	"recibo",
	"presupuesto",
	"tesoreria",
	"albaran",
	"documento",
	"documentos",
}

// IsOnTopic reports whether the message touches accounting vocabulary.
func IsOnTopic(message string) bool {
	normalized := intent.Normalize(message)
	for _, term := range accountingVocabulary {
		if strings.Contains(normalized, term) {
			return true
		}
	}
	return false
}

// Shape classifies the structural kind of a request. It selects both
// answer-format directives and generation parameters.
type Shape string

const (
	ShapeDefault Shape = "default"
	ShapeHowTo   Shape = "how_to"
	ShapeWhatIs  Shape = "what_is"
	ShapeExtract Shape = "extract"
)

var (
	howToMarkers = []string{
		"como ",
		"pasos para",
		"que tengo que hacer para",
		"de que forma",
	}

	procedureVerbs = []string{
		"presentar",
		"hacer",
		"rellenar",
		"declarar",
		"calcular",
		"registrar",
		"contabilizar",
		"facturar",
		"pagar",
		"deducir",
		"darme de alta",
		"darse de alta",
	}

	whatIsMarkers = []string{
		"que es ",
		"que son ",
		"que significa",
		"explica",
		"explicame",
		"definicion de",
		"en que consiste",
	}

	extractMarkers = []string{
		"extrae",
		"saca ",
		"dame el total",
		"dime el total",
		"cual es el importe",
		"cual es el total",
		"lista los",
		"lista las",
		"cuanto",
	}
)

// ClassifyShape resolves the request shape. How-to wins over what-is,
// what-is over extraction.
func ClassifyShape(message string) Shape {
	normalized := intent.Normalize(message)
	if containsAny(normalized, howToMarkers) && containsAny(normalized, procedureVerbs) {
		return ShapeHowTo
	}
	if containsAny(normalized, whatIsMarkers) {
		return ShapeWhatIs
	}
	if containsAny(normalized, extractMarkers) {
		return ShapeExtract
	}
	return ShapeDefault
}

// Structural directives appended as a one-off system message for the
// current turn only. They are never persisted into the replayed history.
const (
	offTopicDirective = "La consulta no trata de contabilidad. Indica brevemente que eres un asistente de IA " +
		"especializado en contabilidad y responde en un máximo de 4 líneas."

	howToDirective = "Responde con viñetas organizadas en cuatro secciones: Requisitos, Pasos, Plazos y Errores comunes."

	whatIsDirective = "Responde con una definición de una línea seguida de entre 3 y 5 viñetas etiquetadas."
)

// Directives builds the per-turn instruction list for a message.
func Directives(message string) []string {
	var out []string
	if !IsOnTopic(message) {
		out = append(out, offTopicDirective)
	}
	switch ClassifyShape(message) {
	case ShapeHowTo:
		out = append(out, howToDirective)
	case ShapeWhatIs:
		out = append(out, whatIsDirective)
	}
	return out
}

// Params are the generation knobs for one turn.
type Params struct {
	Temperature float64
	MaxTokens   int
}

// Budget holds the configured parameter defaults.
type Budget struct {
	Temperature   float64
	Precision     float64
	DefaultTokens int
	ExtractTokens int
	GuideTokens   int
}

// Decide picks generation parameters by request shape. Shaped requests
// run at the precision temperature; extraction asks get the small token
// budget and guidance asks the large one.
func (b Budget) Decide(shape Shape) Params {
	switch shape {
	case ShapeHowTo:
		return Params{Temperature: b.Precision, MaxTokens: b.GuideTokens}
	case ShapeWhatIs:
		return Params{Temperature: b.Precision, MaxTokens: b.DefaultTokens}
	case ShapeExtract:
		return Params{Temperature: b.Precision, MaxTokens: b.ExtractTokens}
	default:
		return Params{Temperature: b.Temperature, MaxTokens: b.DefaultTokens}
	}
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}
