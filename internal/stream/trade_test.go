package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestParseTrade_Minimal(t *testing.T) {
	trade, err := ParseTrade([]byte(`{"s":"ETHUSDT","p":"2000.00"}`), now)
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", trade.Symbol)
	assert.Equal(t, 2000.0, trade.Price.InexactFloat64())
	assert.True(t, now.Equal(trade.Timestamp))
}

func TestParseTrade_AggTradeWithTime(t *testing.T) {
	raw := `{"e":"aggTrade","E":1704067201000,"s":"BTCUSDT","a":5933014,"p":"42000.10","q":"0.002","T":1704067200500,"m":true}`
	trade, err := ParseTrade([]byte(raw), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", trade.Symbol)
	assert.Equal(t, "42000.1", trade.Price.String())
	assert.Equal(t, int64(1704067200500), trade.Timestamp.UnixMilli())
}

func TestParseTrade_CombinedEnvelope(t *testing.T) {
	raw := `{"stream":"ethusdt@aggTrade","data":{"e":"aggTrade","s":"ETHUSDT","p":"2222.5","T":1704067200000}}`
	trade, err := ParseTrade([]byte(raw), now)
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", trade.Symbol)
	assert.Equal(t, "2222.5", trade.Price.String())
}

func TestParseTrade_LowercaseSymbol(t *testing.T) {
	trade, err := ParseTrade([]byte(`{"s":"ethusdt","p":"1"}`), now)
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", trade.Symbol)
}

func TestParseTrade_Malformed(t *testing.T) {
	for _, raw := range []string{
		`not json`,
		`{"s":"ETHUSDT"}`,
		`{"p":"2000"}`,
		`{"s":"ETHUSDT","p":"two thousand"}`,
		`{"s":"ETHUSDT","p":""}`,
		`{"s":"ETHUSDT","p":"-1"}`,
		`{"s":"ETHUSDT","p":2000}`,
	} {
		_, err := ParseTrade([]byte(raw), now)
		assert.ErrorIs(t, err, ErrMalformedTrade, raw)
	}
}

func TestParseTrade_CaseFoldedKeys(t *testing.T) {
	// "e"/"E" and "t"/"T" differ only in case; each must land in its own field.
	raw := `{"e":"trade","E":1704067201000,"T":1704067200250,"s":"ETHUSDT","t":412345,"p":"2300.75","q":"1.5","X":"MARKET","m":false}`
	trade, err := ParseTrade([]byte(raw), now)
	require.NoError(t, err)
	assert.Equal(t, "2300.75", trade.Price.String())
	assert.Equal(t, int64(1704067200250), trade.Timestamp.UnixMilli())
}
