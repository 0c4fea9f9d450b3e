package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsGreeting(t *testing.T) {
	t.Run("ShouldMatchSocialOpeners", func(t *testing.T) {
		assert.True(t, IsGreeting("hola"))
		assert.True(t, IsGreeting("Buenos días"))
		assert.True(t, IsGreeting("¿Qué tal?"))
		assert.True(t, IsGreeting("oye, una cosa"))
	})

	t.Run("ShouldRequireWholeWords", func(t *testing.T) {
		assert.False(t, IsGreeting("el modelo de holanda"))
		assert.False(t, IsGreeting("necesito ayuda con el iva"))
	})
}

func TestIsOnTopic(t *testing.T) {
	t.Run("ShouldRecognizeAccountingVocabulary", func(t *testing.T) {
		assert.True(t, IsOnTopic("cuanto IVA pago este trimestre"))
		assert.True(t, IsOnTopic("tengo una duda con la declaración"))
	})

	t.Run("ShouldFlagUnrelatedMessages", func(t *testing.T) {
		assert.False(t, IsOnTopic("recomiéndame una película para el fin de semana"))
	})
}

func TestClassifyShape(t *testing.T) {
	t.Run("ShouldDetectHowTo", func(t *testing.T) {
		assert.Equal(t, ShapeHowTo, ClassifyShape("¿Cómo presentar la declaración trimestral?"))
		assert.Equal(t, ShapeHowTo, ClassifyShape("pasos para contabilizar una nómina"))
	})

	t.Run("ShouldDetectWhatIs", func(t *testing.T) {
		assert.Equal(t, ShapeWhatIs, ClassifyShape("¿Qué es el modelo 303?"))
		assert.Equal(t, ShapeWhatIs, ClassifyShape("explícame la amortización"))
	})

	t.Run("ShouldDetectExtraction", func(t *testing.T) {
		assert.Equal(t, ShapeExtract, ClassifyShape("dame el total de la factura"))
		assert.Equal(t, ShapeExtract, ClassifyShape("cuanto retuve en marzo"))
	})

	t.Run("ShouldDefaultOtherwise", func(t *testing.T) {
		assert.Equal(t, ShapeDefault, ClassifyShape("tengo dudas sobre mi situación fiscal"))
	})

	t.Run("ShouldPreferHowToOverWhatIs", func(t *testing.T) {
		assert.Equal(t, ShapeHowTo, ClassifyShape("como explica hacienda que hay que presentar el 303"))
	})
}

func TestDirectives(t *testing.T) {
	t.Run("ShouldAddDisclosureForOffTopic", func(t *testing.T) {
		directives := Directives("recomiéndame una película")
		assert.Contains(t, directives, offTopicDirective)
	})

	t.Run("ShouldStayEmptyForPlainOnTopic", func(t *testing.T) {
		assert.Empty(t, Directives("tengo una duda sobre el iva"))
	})

	t.Run("ShouldAddSectionLayoutForHowTo", func(t *testing.T) {
		directives := Directives("como presentar la declaración trimestral")
		assert.Contains(t, directives, howToDirective)
	})

	t.Run("ShouldAddDefinitionLayoutForWhatIs", func(t *testing.T) {
		directives := Directives("qué es la amortización contable")
		assert.Contains(t, directives, whatIsDirective)
	})
}

func TestBudgetDecide(t *testing.T) {
	budget := Budget{Temperature: 0.7, Precision: 0.2, DefaultTokens: 1024, ExtractTokens: 512, GuideTokens: 2048}

	t.Run("ShouldUseDefaultsForPlainChat", func(t *testing.T) {
		params := budget.Decide(ShapeDefault)
		assert.Equal(t, 0.7, params.Temperature)
		assert.Equal(t, 1024, params.MaxTokens)
	})

	t.Run("ShouldUseLargeBudgetForGuides", func(t *testing.T) {
		params := budget.Decide(ShapeHowTo)
		assert.Equal(t, 0.2, params.Temperature)
		assert.Equal(t, 2048, params.MaxTokens)
	})

	t.Run("ShouldUseSmallBudgetForExtraction", func(t *testing.T) {
		params := budget.Decide(ShapeExtract)
		assert.Equal(t, 0.2, params.Temperature)
		assert.Equal(t, 512, params.MaxTokens)
	})

	t.Run("ShouldUsePrecisionForDefinitions", func(t *testing.T) {
		params := budget.Decide(ShapeWhatIs)
		assert.Equal(t, 0.2, params.Temperature)
		assert.Equal(t, 1024, params.MaxTokens)
	})
}
