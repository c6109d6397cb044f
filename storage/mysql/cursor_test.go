package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseMySQLTime(t *testing.T) {
	parsed, err := parseMySQLTime([]byte("2019-03-14 09:26:53.513000"))
	require.NoError(t, err)
	require.Equal(t, time.Date(2019, 3, 14, 9, 26, 53, 513000000, time.UTC), parsed)

	parsed, err = parseMySQLTime([]byte("2019-03-14 09:26:53"))
	require.NoError(t, err)
	require.Equal(t, time.Date(2019, 3, 14, 9, 26, 53, 0, time.UTC), parsed)

	parsed, err = parseMySQLTime(nil)
	require.NoError(t, err)
	require.True(t, parsed.IsZero())

	_, err = parseMySQLTime([]byte("not a datetime"))
	require.Error(t, err)
}

func TestParseInt64(t *testing.T) {
	value, err := parseInt64([]byte("-42"))
	require.NoError(t, err)
	require.Equal(t, int64(-42), value)

	value, err = parseInt64(nil)
	require.NoError(t, err)
	require.Equal(t, int64(0), value)

	_, err = parseInt64([]byte("4x2"))
	require.Error(t, err)
}

func TestParseUint64(t *testing.T) {
	value, err := parseUint64([]byte("18446744073709551615"))
	require.NoError(t, err)
	require.Equal(t, uint64(18446744073709551615), value)

	_, err = parseUint64([]byte("-1"))
	require.Error(t, err)
}

func TestDecodeStringMap(t *testing.T) {
	decoded, err := decodeStringMap([]byte(`{"query":"SELECT 1","consistency":"QUORUM"}`))
	require.NoError(t, err)
	require.Equal(t, map[string]string{"query": "SELECT 1", "consistency": "QUORUM"}, decoded)

	decoded, err = decodeStringMap(nil)
	require.NoError(t, err)
	require.Nil(t, decoded)

	_, err = decodeStringMap([]byte("{broken"))
	require.Error(t, err)
}
