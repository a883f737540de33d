package daterange

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := ParseDay(raw)
	require.NoError(t, err)
	return d
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		want    string
		wantErr bool
	}{
		{name: "plain dates", from: "2024-06-10", to: "2024-06-15", want: "2024-06-10..2024-06-15"},
		{name: "api timestamps", from: "2024-06-10T00:00:00.000Z", to: "2024-06-15T00:00:00.000Z", want: "2024-06-10..2024-06-15"},
		{name: "offset keeps written day", from: "2024-06-10T00:30:00+02:00", to: "2024-06-10T23:00:00-05:00", want: "2024-06-10..2024-06-10"},
		{name: "time of day truncated", from: "2024-06-10T18:45:00", to: "2024-06-11T01:00:00", want: "2024-06-10..2024-06-11"},
		{name: "same day", from: "2024-06-10", to: "2024-06-10", want: "2024-06-10..2024-06-10"},
		{name: "inverted", from: "2024-06-15", to: "2024-06-10", wantErr: true},
		{name: "garbage start", from: "not-a-date", to: "2024-06-10", wantErr: true},
		{name: "empty end", from: "2024-06-10", to: " ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dr, err := Parse(tt.from, tt.to)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformedRange))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, dr.String())
			assert.Equal(t, time.UTC, dr.Start.Location())
		})
	}
}

func TestNewRejectsZeroBounds(t *testing.T) {
	_, err := New(time.Time{}, time.Now())
	assert.ErrorIs(t, err, ErrMalformedRange)
}

func TestOverlaps(t *testing.T) {
	base := MustParse("2024-06-10", "2024-06-15")
	tests := []struct {
		name  string
		other DateRange
		want  bool
	}{
		{name: "touching end boundary", other: MustParse("2024-06-15", "2024-06-18"), want: true},
		{name: "touching start boundary", other: MustParse("2024-06-05", "2024-06-10"), want: true},
		{name: "day after", other: MustParse("2024-06-16", "2024-06-18"), want: false},
		{name: "day before", other: MustParse("2024-06-01", "2024-06-09"), want: false},
		{name: "inside", other: MustParse("2024-06-11", "2024-06-12"), want: true},
		{name: "enclosing", other: MustParse("2024-06-01", "2024-06-30"), want: true},
		{name: "single day inside", other: MustParse("2024-06-12", "2024-06-12"), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(base), "overlap must be symmetric")
		})
	}
}

func TestOverlapsSymmetryAndBoundaryPolicy(t *testing.T) {
	days := []string{"2024-01-30", "2024-01-31", "2024-02-01", "2024-02-02", "2024-02-29", "2024-03-01"}
	var ranges []DateRange
	for i := range days {
		for j := i; j < len(days); j++ {
			ranges = append(ranges, MustParse(days[i], days[j]))
		}
	}
	for _, a := range ranges {
		for _, b := range ranges {
			assert.Equal(t, a.Overlaps(b), b.Overlaps(a), "%s vs %s", a, b)
		}
	}
	for i := range days {
		for j := i; j < len(days); j++ {
			for k := j; k < len(days); k++ {
				left := MustParse(days[i], days[j])
				right := MustParse(days[j], days[k])
				assert.True(t, left.Overlaps(right), "%s should touch %s", left, right)
			}
		}
	}
}

func TestDays(t *testing.T) {
	dr := MustParse("2024-02-27", "2024-03-01")
	got := dr.Days()
	require.Len(t, got, 4)
	assert.Equal(t, date(t, "2024-02-27"), got[0])
	assert.Equal(t, date(t, "2024-02-29"), got[2])
	assert.Equal(t, date(t, "2024-03-01"), got[3])
	assert.Equal(t, got, dr.Days(), "expansion is restartable")
	assert.Equal(t, 3, dr.Nights())

	single := MustParse("2024-06-10", "2024-06-10")
	assert.Len(t, single.Days(), 1)
	assert.Equal(t, 0, single.Nights())

	assert.Nil(t, DateRange{}.Days())
}

func TestContains(t *testing.T) {
	dr := MustParse("2024-06-10", "2024-06-15")
	assert.True(t, dr.Contains(MustParse("2024-06-10", "2024-06-15")))
	assert.True(t, dr.Contains(MustParse("2024-06-11", "2024-06-14")))
	assert.False(t, dr.Contains(MustParse("2024-06-09", "2024-06-14")))
	assert.True(t, dr.ContainsDate(time.Date(2024, 6, 15, 23, 59, 0, 0, time.UTC)))
	assert.False(t, dr.ContainsDate(date(t, "2024-06-16")))
}

func TestMerge(t *testing.T) {
	a := MustParse("2024-06-10", "2024-06-12")

	merged, ok := a.Merge(MustParse("2024-06-13", "2024-06-14"))
	require.True(t, ok, "adjacent ranges merge")
	assert.Equal(t, "2024-06-10..2024-06-14", merged.String())

	merged, ok = a.Merge(MustParse("2024-06-08", "2024-06-11"))
	require.True(t, ok)
	assert.Equal(t, "2024-06-08..2024-06-12", merged.String())

	_, ok = a.Merge(MustParse("2024-06-14", "2024-06-20"))
	assert.False(t, ok)
}

func TestJSONUsesDayLayout(t *testing.T) {
	dr := MustParse("2024-06-10", "2024-06-15")
	data, err := json.Marshal(dr)
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"2024-06-10","to":"2024-06-15"}`, string(data))

	var back DateRange
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, dr, back)

	assert.Error(t, json.Unmarshal([]byte(`{"from":"2024-06-15","to":"2024-06-10"}`), &back))
}
