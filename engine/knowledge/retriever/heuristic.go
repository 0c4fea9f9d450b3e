package retriever

import (
	"strings"

	"github.com/contabot/contabot/engine/chat/intent"
)

// Heuristic decides whether a user message needs retrieval before
// generation. It is deliberately cheap: keyword and length checks only.
type Heuristic struct {
	// MinWords below which retrieval is skipped outright.
	MinWords int
	// LongQueryWords at or above which retrieval triggers even without
	// document vocabulary.
	LongQueryWords int
}

// documentVocabulary holds normalized (diacritic-free) terms that signal
// the user is asking about uploaded material.
var documentVocabulary = []string{
	"pagina",
	"paginas",
	"documento",
	"documentos",
	"factura",
	"facturas",
	"extracto",
	"extractos",
	"recibo",
	"recibos",
	"tabla",
	"tablas",
	"hoja",
	"archivo",
	"pdf",
	"excel",
	"fragmento",
	"contenido",
	"segun el",
	"segun la",
}

// Needed reports whether the message should go through retrieval.
func (h Heuristic) Needed(message string) bool {
	normalized := intent.Normalize(message)
	words := len(strings.Fields(normalized))
	if words == 0 || words < h.MinWords {
		return false
	}
	for _, term := range documentVocabulary {
		if strings.Contains(normalized, term) {
			return true
		}
	}
	return h.LongQueryWords > 0 && words >= h.LongQueryWords
}
