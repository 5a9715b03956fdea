package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sec-correlate/correlator/internal/event"
)

func mkEvent(ts time.Time) event.Event {
	return event.New(event.TypeAuthFail, ts, "test", nil, ts)
}

func TestStore_SliceFiltersByLookbackWindow(t *testing.T) {
	s := New(nil)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	recent := mkEvent(base.Add(-30 * time.Second))
	old := mkEvent(base.Add(-120 * time.Second))
	s.Admit(recent, recent.Timestamp)
	s.Admit(old, old.Timestamp)

	got := s.Slice(event.TypeAuthFail, base, 60)
	assert.Len(t, got, 1)
	assert.Equal(t, recent.Timestamp, got[0].Timestamp)
}

func TestStore_SliceReturnsNilForUnknownType(t *testing.T) {
	s := New(nil)
	got := s.Slice(event.TypeNetworkConnect, time.Now(), 60)
	assert.Nil(t, got)
}

func TestStore_SlicePreservesArrivalOrder(t *testing.T) {
	s := New(nil)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		ev := mkEvent(base.Add(time.Duration(i) * time.Second))
		s.Admit(ev, ev.Timestamp)
	}

	got := s.Slice(event.TypeAuthFail, base.Add(10*time.Second), 60)
	a := assert.New(t)
	a.Len(got, 5)
	for i := 1; i < len(got); i++ {
		a.True(got[i-1].Timestamp.Before(got[i].Timestamp))
	}
}

func TestStore_SliceReturnsCopyNotLiveView(t *testing.T) {
	s := New(nil)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ev := mkEvent(base)
	s.Admit(ev, ev.Timestamp)

	got := s.Slice(event.TypeAuthFail, base, 60)

	more := mkEvent(base.Add(time.Second))
	s.Admit(more, more.Timestamp)

	assert.Len(t, got, 1, "previously returned slice must not observe later admissions")
}

func TestStore_ExpireDropsOldEntriesByIngestTime(t *testing.T) {
	s := New(nil)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	keep := mkEvent(base.Add(-10 * time.Second))
	drop := mkEvent(base.Add(-1000 * time.Second))
	s.Admit(keep, keep.Timestamp)
	s.Admit(drop, drop.Timestamp)

	s.Expire(base, 60*time.Second)

	got := s.Slice(event.TypeAuthFail, base, 3600)
	assert.Len(t, got, 1)
	assert.Equal(t, keep.Timestamp, got[0].Timestamp)
}

func TestStore_ExpireRemovesEmptyTypeBuckets(t *testing.T) {
	s := New(nil)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ev := mkEvent(base.Add(-1000 * time.Second))
	s.Admit(ev, ev.Timestamp)

	assert.Equal(t, 1, s.TotalEvents())
	s.Expire(base, 60*time.Second)
	assert.Equal(t, 0, s.TotalEvents())
}

func TestStore_TotalEventsAcrossTypes(t *testing.T) {
	s := New(nil)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	fail := mkEvent(base)
	conn := event.New(event.TypeNetworkConnect, base, "test", nil, base)
	s.Admit(fail, fail.Timestamp)
	s.Admit(conn, conn.Timestamp)

	assert.Equal(t, 2, s.TotalEvents())
}
