package aggregation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusRow struct {
	day    string
	status string
}

type scoreRow struct {
	kind  string
	score float64
	max   float64
}

func statusGrouping() Grouping[statusRow, int] {
	return Grouping[statusRow, int]{
		Category:   func(r statusRow) string { return r.status },
		Categories: []string{"absent", "late", "present"},
	}
}

func TestSummarizeStatusBreakdown(t *testing.T) {
	rows := make([]statusRow, 0, 10)
	for i := 0; i < 6; i++ {
		rows = append(rows, statusRow{status: "present"})
	}
	rows = append(rows, statusRow{status: "absent"}, statusRow{status: "absent"}, statusRow{status: "late"}, statusRow{status: "late"})

	overall := Summarize(rows, statusGrouping())

	assert.Equal(t, 10, overall.Count)
	assert.Equal(t, 60.0, overall.Category("present").Percentage)
	assert.Equal(t, 20.0, overall.Category("absent").Percentage)
	assert.Equal(t, 20.0, overall.Category("late").Percentage)
	assert.Equal(t, 6, overall.Category("present").Count)
}

func TestSummarizeEmptyYieldsZeroGroup(t *testing.T) {
	overall := Summarize(nil, statusGrouping())

	assert.Equal(t, 0, overall.Count)
	require.Len(t, overall.Categories, 3)
	for _, c := range overall.Categories {
		assert.Equal(t, 0, c.Count)
		assert.Equal(t, 0.0, c.Percentage)
	}
	assert.Equal(t, 0.0, overall.Average)
}

func TestAggregateByKeyAscending(t *testing.T) {
	rows := []statusRow{
		{day: "2024-03-02", status: "present"},
		{day: "2024-03-01", status: "absent"},
		{day: "2024-03-02", status: "late"},
		{day: "2024-03-01", status: "present"},
		{day: "2024-02-28", status: "present"},
	}

	groups := Aggregate(rows, Grouping[statusRow, string]{
		Key:        func(r statusRow) string { return r.day },
		Category:   func(r statusRow) string { return r.status },
		Categories: []string{"absent", "late", "present"},
	})

	require.Len(t, groups, 3)
	assert.Equal(t, "2024-02-28", groups[0].Key)
	assert.Equal(t, "2024-03-01", groups[1].Key)
	assert.Equal(t, "2024-03-02", groups[2].Key)
	assert.Equal(t, 50.0, groups[1].Category("absent").Percentage)
	assert.Equal(t, 2, groups[2].Count)
}

func TestAggregateRatioExcludesZeroMax(t *testing.T) {
	rows := []scoreRow{
		{kind: "quiz", score: 8, max: 10},
		{kind: "quiz", score: 5, max: 0},
		{kind: "quiz", score: 3, max: 6},
		{kind: "exam", score: 0, max: 0},
	}

	groups := Aggregate(rows, Grouping[scoreRow, string]{
		Key:   func(r scoreRow) string { return r.kind },
		Ratio: func(r scoreRow) (float64, float64) { return r.score, r.max },
	})

	require.Len(t, groups, 2)
	exam, quiz := groups[0], groups[1]
	assert.Equal(t, "exam", exam.Key)
	assert.Equal(t, 1, exam.Count)
	assert.Equal(t, 1, exam.Excluded)
	assert.Equal(t, 0.0, exam.Average)

	assert.Equal(t, 3, quiz.Count)
	assert.Equal(t, 1, quiz.Excluded)
	assert.Equal(t, 65.0, quiz.Average)
	assert.Equal(t, 50.0, quiz.Minimum)
	assert.Equal(t, 80.0, quiz.Maximum)
}

func TestAggregateRankedWithTiesAndLimit(t *testing.T) {
	rows := []statusRow{
		{day: "b"}, {day: "a"}, {day: "c"}, {day: "c"}, {day: "b"}, {day: "d"}, {day: "c"},
	}

	groups := Aggregate(rows, Grouping[statusRow, string]{
		Key:    func(r statusRow) string { return r.day },
		Ranked: true,
		Limit:  3,
	})

	require.Len(t, groups, 3)
	assert.Equal(t, "c", groups[0].Key)
	assert.Equal(t, "b", groups[1].Key)
	assert.Equal(t, "a", groups[2].Key)
}

func TestAggregateUnlistedCategoriesAppendedSorted(t *testing.T) {
	rows := []statusRow{{status: "zeta"}, {status: "present"}, {status: "alpha"}}

	overall := Summarize(rows, Grouping[statusRow, int]{
		Category:   func(r statusRow) string { return r.status },
		Categories: []string{"present"},
	})

	require.Len(t, overall.Categories, 3)
	assert.Equal(t, "present", overall.Categories[0].Category)
	assert.Equal(t, "alpha", overall.Categories[1].Category)
	assert.Equal(t, "zeta", overall.Categories[2].Category)
	assert.Equal(t, 33.33, overall.Categories[0].Percentage)
}

func TestAggregateWithoutKeyReturnsNil(t *testing.T) {
	assert.Nil(t, Aggregate([]statusRow{{status: "present"}}, Grouping[statusRow, string]{}))
}

func TestDistinct(t *testing.T) {
	rows := []statusRow{{day: "x"}, {day: "y"}, {day: "x"}}
	assert.Equal(t, 2, Distinct(rows, func(r statusRow) string { return r.day }))
	assert.Equal(t, 0, Distinct([]statusRow{}, func(r statusRow) string { return r.day }))
}

func TestPercentageAndRounding(t *testing.T) {
	assert.Equal(t, 0.0, Percentage(3, 0))
	assert.Equal(t, 66.67, Percentage(2, 3))
	assert.Equal(t, 100.0, Percentage(4, 4))
	assert.Equal(t, 1.23, Round2(1.2345))
}

func TestTimeBuckets(t *testing.T) {
	ts := time.Date(2024, time.March, 3, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-03", DateKey(ts))
	assert.Equal(t, 14, HourKey(ts))
	assert.Equal(t, 0, DayKey(ts))

	local := time.Date(2024, time.March, 4, 1, 0, 0, 0, time.FixedZone("UTC+7", 7*3600))
	assert.Equal(t, 18, HourKey(local))
	assert.Equal(t, 0, DayKey(local))
}
