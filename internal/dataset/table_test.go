package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTableValidation(t *testing.T) {
	t.Run("mismatched lengths", func(t *testing.T) {
		_, err := NewTable(
			NewFloat64Column("price", []float64{1, 2, 3}),
			NewStringColumn("ticker", []string{"AAPL"}),
		)
		assert.Error(t, err)
	})

	t.Run("duplicate names", func(t *testing.T) {
		_, err := NewTable(
			NewFloat64Column("price", []float64{1}),
			NewFloat64Column("price", []float64{2}),
		)
		assert.Error(t, err)
	})

	t.Run("valid", func(t *testing.T) {
		table, err := NewTable(
			NewStringColumn("ticker", []string{"AAPL", "MSFT"}),
			NewFloat64Column("price", []float64{101.5, 330.2}),
		)
		require.NoError(t, err)
		assert.Equal(t, 2, table.NumRows())
		assert.Equal(t, 2, table.NumCols())
	})
}

func TestColumnAccessors(t *testing.T) {
	when := time.Date(2001, 1, 31, 0, 0, 0, 0, time.UTC)
	table, err := NewTable(
		NewTimeColumn("date", []time.Time{when}),
		NewStringColumn("ticker", []string{"AAPL"}),
		NewFloat64Column("price", []float64{1.46}),
		NewInt64Column("volume", []int64{1200}),
	)
	require.NoError(t, err)

	date, ok := table.Column("date")
	require.True(t, ok)
	assert.Equal(t, when, date.TimeAt(0))

	price, ok := table.Column("price")
	require.True(t, ok)
	assert.Equal(t, KindFloat64, price.Kind())
	assert.InDelta(t, 1.46, price.Float(0), 1e-12)

	volume, ok := table.Column("volume")
	require.True(t, ok)
	assert.Equal(t, int64(1200), volume.Int(0))
	assert.Equal(t, 1200.0, volume.Float(0))

	_, ok = table.Column("missing")
	assert.False(t, ok)
}

func TestColumnFold(t *testing.T) {
	table, err := NewTable(
		NewStringColumn("Ticker", []string{"AAPL"}),
		NewFloat64Column("Adj Close", []float64{1366.01}),
		NewFloat64Column("Close", []float64{1360.0}),
	)
	require.NoError(t, err)

	col, ok := table.ColumnFold("ticker")
	require.True(t, ok)
	assert.Equal(t, "Ticker", col.Name())

	// candidate order wins over column order
	col, ok = table.ColumnFold("adjusted close", "adj close", "close")
	require.True(t, ok)
	assert.Equal(t, "Adj Close", col.Name())

	_, ok = table.ColumnFold("open")
	assert.False(t, ok)
}

func TestKindProperties(t *testing.T) {
	assert.True(t, KindInt8.IsInteger())
	assert.True(t, KindFloat32.IsFloat())
	assert.True(t, KindInt64.IsNumeric())
	assert.False(t, KindString.IsNumeric())
	assert.False(t, KindTime.IsNumeric())

	assert.Equal(t, int64(1), KindInt8.Width())
	assert.Equal(t, int64(4), KindFloat32.Width())
	assert.Equal(t, int64(8), KindFloat64.Width())
}

func TestSizeBytes(t *testing.T) {
	table, err := NewTable(
		NewFloat64Column("price", []float64{1, 2, 3, 4}),
		NewStringColumn("ticker", []string{"A", "BB", "CCC", "DDDD"}),
	)
	require.NoError(t, err)

	// 4 float64 values plus 4 string headers plus 10 bytes of payload
	assert.Equal(t, int64(4*8+4*16+10), table.SizeBytes())
}
