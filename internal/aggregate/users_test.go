package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dwhmon/internal/extract"
	"dwhmon/internal/reconcile"
)

func TestUserQueryTotalsAliasGrouping(t *testing.T) {
	settings := DefaultSettings()
	aliases := reconcile.AliasMap{
		"admin admin": "CODOC",
		"admin2":      "CODOC",
	}
	at := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

	users := []extract.UserRecord{
		{Username: "admin admin", QueryTimes: []time.Time{at}},
		{Username: "admin2", QueryTimes: []time.Time{at}},
		{Username: "Nicolas Garcelon", QueryTimes: []time.Time{at}},
	}

	totals := settings.UserQueryTotals(users, aliases, nil)
	require.Len(t, totals, 2)
	assert.Equal(t, UserCount{User: "CODOC", Count: 2}, totals[0])
	assert.Equal(t, UserCount{User: "Nicolas Garcelon", Count: 1}, totals[1])
}

func TestUserQueryTotalsYearFilter(t *testing.T) {
	settings := DefaultSettings()
	users := []extract.UserRecord{
		{Username: "Marie Curie", QueryTimes: []time.Time{
			time.Date(2022, 11, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC),
		}},
	}

	year := 2023
	totals := settings.UserQueryTotals(users, nil, &year)
	require.Len(t, totals, 1)
	assert.Equal(t, 2, totals[0].Count)
}

func TestUserQueryTotalsTopNCap(t *testing.T) {
	settings := DefaultSettings()
	settings.TopUsers = 2
	at := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

	users := []extract.UserRecord{
		{Username: "a", QueryTimes: []time.Time{at, at, at}},
		{Username: "b", QueryTimes: []time.Time{at, at}},
		{Username: "c", QueryTimes: []time.Time{at}},
	}

	totals := settings.UserQueryTotals(users, nil, nil)
	require.Len(t, totals, 2)
	assert.Equal(t, "a", totals[0].User)
	assert.Equal(t, "b", totals[1].User)
}
