package recur

import (
	"testing"
	"time"

	"github.com/mfserna/taskcycle/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMaster() *domain.Task {
	return &domain.Task{
		ID:        "master-1",
		Title:     "Send invoices",
		Kind:      domain.KindMaster,
		StartDate: date(2024, 1, 1),
		Rule:      &domain.RecurrenceRule{Frequency: domain.FreqDaily, Interval: 1},
	}
}

func dailySpans(t *testing.T, start time.Time, count int) []Span {
	t.Helper()
	spans, err := Generate(start, domain.RecurrenceRule{
		Frequency: domain.FreqDaily, Interval: 1, Count: &count,
	}, Options{})
	require.NoError(t, err)
	return spans
}

func TestReconcile_NoExceptionsPassesThrough(t *testing.T) {
	master := testMaster()
	spans := dailySpans(t, date(2024, 1, 1), 3)

	occs := Reconcile(master, spans, nil, nil)

	require.Len(t, occs, 3)
	for i, o := range occs {
		assert.Equal(t, spans[i].Start, o.Start)
		assert.True(t, o.Generated, "untouched occurrences are tagged generated")
		assert.False(t, o.Modified)
		assert.Same(t, master, o.Task)
	}
}

func TestReconcile_CancelledRemovesExactlyThatDate(t *testing.T) {
	master := testMaster()
	spans := dailySpans(t, date(2024, 1, 1), 5)

	occs := Reconcile(master, spans, []domain.Exception{{
		MasterTaskID: master.ID,
		Date:         date(2024, 1, 3),
		Type:         domain.ExceptionCancelled,
	}}, nil)

	require.Len(t, occs, 4)
	for _, o := range occs {
		assert.False(t, SameDate(o.Start, date(2024, 1, 3)))
	}
}

func TestReconcile_ModifiedSubstitutesOverrideTask(t *testing.T) {
	master := testMaster()
	spans := dailySpans(t, date(2024, 1, 1), 3)

	overrideID := "override-1"
	override := &domain.Task{
		ID:           overrideID,
		Title:        "Send invoices (rush)",
		Kind:         domain.KindInstance,
		ParentTaskID: &master.ID,
		StartDate:    date(2024, 1, 2),
		IsException:  true,
	}

	occs := Reconcile(master, spans, []domain.Exception{{
		MasterTaskID: master.ID,
		Date:         date(2024, 1, 2),
		Type:         domain.ExceptionModified,
		NewTaskID:    &overrideID,
	}}, map[string]*domain.Task{overrideID: override})

	require.Len(t, occs, 3)
	assert.Same(t, master, occs[0].Task)
	assert.Same(t, override, occs[1].Task)
	assert.True(t, occs[1].Modified)
	assert.False(t, occs[1].Generated)
	assert.Same(t, master, occs[2].Task)
}

func TestReconcile_DanglingModifiedKeepsGeneratedView(t *testing.T) {
	master := testMaster()
	spans := dailySpans(t, date(2024, 1, 1), 2)

	missing := "gone"
	occs := Reconcile(master, spans, []domain.Exception{{
		MasterTaskID: master.ID,
		Date:         date(2024, 1, 2),
		Type:         domain.ExceptionModified,
		NewTaskID:    &missing,
	}}, nil)

	require.Len(t, occs, 2)
	assert.True(t, occs[1].Generated)
	assert.Same(t, master, occs[1].Task)
}

func TestReconcile_MovedSuppressesSeriesDate(t *testing.T) {
	master := testMaster()
	spans := dailySpans(t, date(2024, 1, 1), 3)

	movedID := "moved-1"
	occs := Reconcile(master, spans, []domain.Exception{{
		MasterTaskID: master.ID,
		Date:         date(2024, 1, 2),
		Type:         domain.ExceptionMoved,
		NewTaskID:    &movedID,
	}}, nil)

	require.Len(t, occs, 2)
	assert.True(t, SameDate(occs[0].Start, date(2024, 1, 1)))
	assert.True(t, SameDate(occs[1].Start, date(2024, 1, 3)))
}

func TestReconcile_ResultOrderedByDate(t *testing.T) {
	master := testMaster()
	spans := dailySpans(t, date(2024, 1, 1), 10)

	occs := Reconcile(master, spans, []domain.Exception{
		{MasterTaskID: master.ID, Date: date(2024, 1, 7), Type: domain.ExceptionCancelled},
		{MasterTaskID: master.ID, Date: date(2024, 1, 2), Type: domain.ExceptionMoved},
	}, nil)

	for i := 1; i < len(occs); i++ {
		assert.True(t, occs[i-1].Start.Before(occs[i].Start), "strictly ordered by effective date")
	}
}
