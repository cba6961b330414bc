package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCostUSD(t *testing.T) {
	t.Run("gpt-4o-mini", func(t *testing.T) {
		input, output := CostUSD("gpt-4o-mini", 1000, 500)
		assert.InDelta(t, 0.00015, input, 1e-9)
		assert.InDelta(t, 0.0003, output, 1e-9)
	})

	t.Run("rounded to six decimals", func(t *testing.T) {
		input, output := CostUSD("gpt-4o", 333333, 111111)
		assert.Equal(t, 0.833333, input)
		assert.Equal(t, 1.11111, output)
	})

	t.Run("unknown model uses default pricing", func(t *testing.T) {
		input, output := CostUSD("some-future-model", 1000, 500)
		defInput, defOutput := CostUSD(DefaultOpenAIModel, 1000, 500)
		assert.Equal(t, defInput, input)
		assert.Equal(t, defOutput, output)
	})

	t.Run("zero tokens cost nothing", func(t *testing.T) {
		input, output := CostUSD("gemini-2.0-flash", 0, 0)
		assert.Zero(t, input)
		assert.Zero(t, output)
	})
}
