package fx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckImportAlert(t *testing.T) {
	t.Run("fires when usd sits below weekly average", func(t *testing.T) {
		// average of the tail (5.20, 5.30, 5.26) = 5.2533; 5.00 is ~4.8% below
		weekly := []float64{5.00, 5.20, 5.30, 5.26}
		alert := CheckImportAlert(5.00, weekly, 3)
		require.NotNil(t, alert)
		assert.Equal(t, "import_opportunity", alert.Type)
		assert.Less(t, alert.Variation, -3.0)
		assert.InDelta(t, 5.25, alert.WeeklyAvg, 0.01)
	})

	t.Run("quiet inside the threshold", func(t *testing.T) {
		weekly := []float64{5.20, 5.22, 5.25, 5.21}
		assert.Nil(t, CheckImportAlert(5.20, weekly, 3))
	})

	t.Run("quiet when the rate is above average", func(t *testing.T) {
		weekly := []float64{5.50, 5.20, 5.25, 5.21}
		assert.Nil(t, CheckImportAlert(5.50, weekly, 3))
	})

	t.Run("needs at least two observations", func(t *testing.T) {
		assert.Nil(t, CheckImportAlert(5.00, []float64{5.30}, 3))
		assert.Nil(t, CheckImportAlert(5.00, nil, 3))
	})
}
