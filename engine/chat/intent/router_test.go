package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Run("ShouldLowercaseStripDiacriticsAndTrim", func(t *testing.T) {
		assert.Equal(t, "subir imagenes", Normalize("  Subir Imágenes  "))
		assert.Equal(t, "que tal", Normalize("Qué tal"))
	})
}

func TestDetect(t *testing.T) {
	t.Run("ShouldMatchExpenseUploadWithVerb", func(t *testing.T) {
		res := Detect("sube esta factura")
		assert.Equal(t, ActionExpenseUpload, res.Action)
		assert.True(t, res.Matched())
		assert.NotEmpty(t, res.Guide)
	})

	t.Run("ShouldNotMatchExpenseWithoutVerb", func(t *testing.T) {
		res := Detect("la factura tiene un importe raro")
		assert.Equal(t, ActionNone, res.Action)
		assert.False(t, res.Matched())
	})

	t.Run("ShouldMatchDocumentUploadWithVerb", func(t *testing.T) {
		res := Detect("quiero cargar un documento PDF de ingresos")
		// Expense keywords take precedence only when present; here the
		// document set should win.
		assert.Equal(t, ActionDocumentUpload, res.Action)
	})

	t.Run("ShouldPreferExpenseOverDocument", func(t *testing.T) {
		res := Detect("procesar las facturas del pdf")
		assert.Equal(t, ActionExpenseUpload, res.Action)
	})

	t.Run("ShouldLetHistoryWinOutright", func(t *testing.T) {
		res := Detect("subir al historial")
		assert.Equal(t, ActionHistory, res.Action)
	})

	t.Run("ShouldMatchHistoryWithoutVerb", func(t *testing.T) {
		res := Detect("muéstrame los documentos subidos")
		assert.Equal(t, ActionHistory, res.Action)
	})

	t.Run("ShouldIgnoreDiacritics", func(t *testing.T) {
		res := Detect("Adjuntá esta imágen")
		assert.Equal(t, ActionExpenseUpload, res.Action)
	})

	t.Run("ShouldReturnNoneForPlainChat", func(t *testing.T) {
		res := Detect("cuanto iva pago este trimestre")
		assert.Equal(t, ActionNone, res.Action)
	})
}

func TestSection(t *testing.T) {
	t.Run("ShouldMapActionsToPanels", func(t *testing.T) {
		id, label := ActionExpenseUpload.Section()
		assert.Equal(t, "upload", id)
		assert.Equal(t, "Subir Imágenes", label)
		id, label = ActionHistory.Section()
		assert.Equal(t, "historial", id)
		assert.Equal(t, "Historial", label)
		id, _ = ActionNone.Section()
		assert.Empty(t, id)
	})
}
