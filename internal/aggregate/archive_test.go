package aggregate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dwhmon/internal/extract"
)

func TestArchiveStatusThreshold(t *testing.T) {
	settings := DefaultSettings() // 20 year threshold
	now := time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)

	archives := []extract.ArchiveRecord{
		{Source: "EMR", OldestDocument: now.AddDate(-21, 0, 0), Status: "active"},
		{Source: "LAB", OldestDocument: now.AddDate(-19, 0, 0), Status: "active"},
	}

	status := settings.ArchiveStatus(archives, now)
	require.Len(t, status, 2)

	assert.Equal(t, "EMR", status[0].Source)
	assert.True(t, status[0].OverThreshold)
	assert.InDelta(t, 21, status[0].AgeYears, 0.05)

	assert.Equal(t, "LAB", status[1].Source)
	assert.False(t, status[1].OverThreshold)
	assert.InDelta(t, 19, status[1].AgeYears, 0.05)
}

func TestArchiveStatusMergesGroupedSources(t *testing.T) {
	settings := DefaultSettings() // Easily_* groups into Easily
	now := time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)

	archives := []extract.ArchiveRecord{
		{Source: "Easily_PDF", OldestDocument: now.AddDate(-5, 0, 0), Status: "active"},
		{Source: "Easily_HL7", OldestDocument: now.AddDate(-21, 0, 0), Status: "active"},
		{Source: "LAB", OldestDocument: now.AddDate(-3, 0, 0), Status: "active"},
	}

	status := settings.ArchiveStatus(archives, now)
	require.Len(t, status, 2)

	// One row for the whole family, carrying its oldest document.
	assert.Equal(t, "Easily", status[0].Source)
	assert.True(t, status[0].OverThreshold)
	assert.InDelta(t, 21, status[0].AgeYears, 0.05)

	assert.Equal(t, "LAB", status[1].Source)
	assert.False(t, status[1].OverThreshold)
}

func TestArchiveAgeRecomputedAgainstNow(t *testing.T) {
	settings := DefaultSettings()
	archive := extract.ArchiveRecord{Source: "EMR", OldestDocument: time.Date(2004, 1, 1, 0, 0, 0, 0, time.UTC)}

	before := settings.ArchiveStatus([]extract.ArchiveRecord{archive}, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	after := settings.ArchiveStatus([]extract.ArchiveRecord{archive}, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	assert.False(t, before[0].OverThreshold)
	assert.True(t, after[0].OverThreshold)
}
