package intent

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Action tags a UI navigation the user asked for in free text. The
// dispatch mechanism belongs to the UI layer; the router only resolves
// the tag and a guidance string.
type Action string

const (
	ActionNone           Action = ""
	ActionExpenseUpload  Action = "file_upload"
	ActionDocumentUpload Action = "secondary_upload"
	ActionHistory        Action = "history"
)

// Result is the router's verdict for one message.
type Result struct {
	Action Action
	Guide  string
}

// Matched reports whether any UI action was resolved.
func (r Result) Matched() bool {
	return r.Action != ActionNone
}

// Section maps an action to the UI panel it opens.
func (a Action) Section() (id, label string) {
	switch a {
	case ActionExpenseUpload:
		return "upload", "Subir Imágenes"
	case ActionDocumentUpload:
		return "upload2", "Subir Documentos"
	case ActionHistory:
		return "historial", "Historial"
	default:
		return "", ""
	}
}

// Keyword sets are held as data tables so rules stay independently
// testable and extensible without touching the control flow.
var (
	historyKeywords = []string{
		"historial",
		"ver documentos",
		"documentos subidos",
		"ya se subieron",
		"subidos",
	}

	expenseKeywords = []string{
		"factura",
		"facturas",
		"imagen",
		"imagenes",
		"foto",
		"fotos",
		"gasto",
		"gastos",
	}

	documentKeywords = []string{
		"documento",
		"documentos",
		"doc",
		"docs",
		"pdf",
		"ingreso",
		"ingresos",
	}

	uploadVerbs = []string{
		"subir",
		"sube",
		"cargar",
		"carga",
		"adjuntar",
		"adjunta",
		"analizar",
		"analiza",
		"procesar",
		"procesa",
	}
)

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases, strips diacritics, and trims a message so the
// keyword tables can stay plain ASCII.
func Normalize(message string) string {
	lowered := strings.ToLower(message)
	stripped, _, err := transform.String(diacriticStripper, lowered)
	if err != nil {
		return strings.TrimSpace(lowered)
	}
	return strings.TrimSpace(stripped)
}

// Detect pattern-matches a message against the keyword tables.
// Precedence: history wins outright, then expense/image uploads, then
// document/income uploads. Upload intents require an action verb.
func Detect(message string) Result {
	text := Normalize(message)
	if containsAny(text, historyKeywords) {
		return Result{
			Action: ActionHistory,
			Guide:  "Abriendo la sección de documentos ya subidos. Sigue las indicaciones en pantalla para revisar el historial.",
		}
	}
	if !containsAny(text, uploadVerbs) {
		return Result{}
	}
	if containsAny(text, expenseKeywords) {
		return Result{
			Action: ActionExpenseUpload,
			Guide:  "Listo. Abriendo la sección para subir gastos (imágenes/facturas).",
		}
	}
	if containsAny(text, documentKeywords) {
		return Result{
			Action: ActionDocumentUpload,
			Guide:  "Listo. Abriendo la sección para subir ingresos (documentos/PDF).",
		}
	}
	return Result{}
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
