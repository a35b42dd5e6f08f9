package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dwhmon/internal/extract"
)

func ts(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestResolveDefaultPrecedence(t *testing.T) {
	now := time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)
	policy := DefaultPolicy()

	cases := []struct {
		name string
		doc  extract.DocumentRecord
		want Resolution
	}{
		{
			name: "created wins when not later than modified",
			doc:  extract.DocumentRecord{CreatedAt: ts(2023, 7, 20), ModifiedAt: ts(2023, 7, 21)},
			want: Resolution{Date: *ts(2023, 7, 20), Source: FieldCreated, Resolved: true},
		},
		{
			name: "modified used when created absent",
			doc:  extract.DocumentRecord{ModifiedAt: ts(2023, 7, 21)},
			want: Resolution{Date: *ts(2023, 7, 21), Source: FieldModified, Resolved: true},
		},
		{
			name: "uploaded used when created and modified absent",
			doc:  extract.DocumentRecord{UploadedAt: ts(2023, 1, 1)},
			want: Resolution{Date: *ts(2023, 1, 1), Source: FieldUploaded, Resolved: true},
		},
		{
			name: "all absent yields unresolved",
			doc:  extract.DocumentRecord{},
			want: Resolution{},
		},
		{
			name: "created later than modified falls back to modified",
			doc:  extract.DocumentRecord{CreatedAt: ts(2023, 8, 1), ModifiedAt: ts(2023, 7, 1)},
			want: Resolution{Date: *ts(2023, 7, 1), Source: FieldModified, Resolved: true},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, policy.Resolve(tc.doc, now))
		})
	}
}

func TestResolveSuspectBounds(t *testing.T) {
	now := time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)
	policy := Policy{
		Precedence:     []Field{FieldCreated},
		MaxPastYears:   50,
		MaxFutureYears: 1,
	}

	t.Run("far past flagged suspect, not discarded", func(t *testing.T) {
		res := policy.Resolve(extract.DocumentRecord{CreatedAt: ts(1901, 1, 1)}, now)
		assert.True(t, res.Resolved)
		assert.True(t, res.Suspect)
	})

	t.Run("future flagged suspect", func(t *testing.T) {
		res := policy.Resolve(extract.DocumentRecord{CreatedAt: ts(2026, 1, 1)}, now)
		assert.True(t, res.Resolved)
		assert.True(t, res.Suspect)
	})

	t.Run("in-bounds date not suspect", func(t *testing.T) {
		res := policy.Resolve(extract.DocumentRecord{CreatedAt: ts(2020, 1, 1)}, now)
		assert.True(t, res.Resolved)
		assert.False(t, res.Suspect)
	})
}

func TestResolveIsPure(t *testing.T) {
	now := time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)
	policy := DefaultPolicy()
	doc := extract.DocumentRecord{CreatedAt: ts(2023, 7, 20), ModifiedAt: ts(2023, 7, 21)}

	first := policy.Resolve(doc, now)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, policy.Resolve(doc, now))
	}
}

func TestPolicyValidate(t *testing.T) {
	cases := []struct {
		name    string
		policy  Policy
		wantErr string
	}{
		{"empty precedence", Policy{MaxPastYears: 1}, "at least one field"},
		{"unknown field", Policy{Precedence: []Field{"received"}, MaxPastYears: 1, MaxFutureYears: 1}, "unknown date field"},
		{"duplicate field", Policy{Precedence: []Field{FieldCreated, FieldCreated}, MaxPastYears: 1, MaxFutureYears: 1}, "twice"},
		{"non-positive bounds", Policy{Precedence: []Field{FieldCreated}}, "bounds"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.policy.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}

	assert.NoError(t, DefaultPolicy().Validate())
}
