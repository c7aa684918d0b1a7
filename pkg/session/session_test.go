package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/marshallshelly/pebble-study/pkg/builder"
	"github.com/marshallshelly/pebble-study/pkg/runtime"
)

type memo struct {
	ID         int64     `po:"memo_id,primaryKey,bigint,identity"`
	Title      string    `po:"title,varchar(5),notNull"`
	Body       string    `po:"body,text"`
	Rating     *int      `po:"rating,integer"`
	Attachment []byte    `po:"attachment"`
	CreatedAt  time.Time `po:"created_at,timestamptz,autoCreateTime"`
	UpdatedAt  time.Time `po:"updated_at,timestamptz,autoUpdateTime"`
	Draft      string
}

func (memo) TableName() string { return "tbl_memo" }

func (m *memo) ApplyDefaults() {
	if m.Body == "" {
		m.Body = "(empty)"
	}
}

var errRejected = errors.New("rejected title")

func (m *memo) Validate() error {
	if m.Title == "nope" {
		return errRejected
	}
	return nil
}

func newTestSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	return New(builder.New(nil), opts...)
}

func savedMemo() *memo {
	rating := 3
	return &memo{
		ID:         1,
		Title:      "hello",
		Body:       "text",
		Rating:     &rating,
		Attachment: []byte{1, 2},
		CreatedAt:  time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		UpdatedAt:  time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestChanged(t *testing.T) {
	table, err := tableOf[memo]()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(m *memo)
		want   []string
	}{
		{"nothing", func(m *memo) {}, nil},
		{"scalar", func(m *memo) { m.Title = "bye" }, []string{"title"}},
		{"pointer target", func(m *memo) { *m.Rating = 5 }, []string{"rating"}},
		{"pointer to nil", func(m *memo) { m.Rating = nil }, []string{"rating"}},
		{"bytes in place", func(m *memo) { m.Attachment[0] = 9 }, []string{"attachment"}},
		{"several in column order", func(m *memo) { m.Body = "x"; m.Title = "y" }, []string{"title", "body"}},
		{"timestamps and key are ignored", func(m *memo) {
			m.ID = 99
			m.CreatedAt = time.Now()
			m.UpdatedAt = time.Now()
		}, nil},
		{"transient fields are ignored", func(m *memo) { m.Draft = "scratch" }, nil},
		{"same instant in another zone", func(m *memo) {
			m.CreatedAt = m.CreatedAt.In(time.FixedZone("KST", 9*3600))
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := savedMemo()
			snap, err := takeSnapshot(table, m)
			require.NoError(t, err)

			tt.mutate(m)
			got, err := Changed(table, snap, m)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize(t *testing.T) {
	n := 7
	p := &n
	assert.Equal(t, 7, normalize(&p))
	assert.Nil(t, normalize((*int)(nil)))
	assert.Nil(t, normalize(nil))

	b := []byte("ab")
	copied := normalize(b).([]byte)
	b[0] = 'z'
	assert.Equal(t, []byte("ab"), copied)
}

func TestSameValue(t *testing.T) {
	utc := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, sameValue(utc, utc.In(time.FixedZone("KST", 9*3600))))
	assert.False(t, sameValue(utc, utc.Add(time.Microsecond)))
	assert.False(t, sameValue(utc, "2024-01-01"))
	assert.True(t, sameValue([]byte("a"), []byte("a")))
	assert.True(t, sameValue(nil, nil))
}

func TestTracking(t *testing.T) {
	s := newTestSession(t)
	m := savedMemo()

	assert.False(t, IsTracked(s, m))
	require.NoError(t, Track(s, m))
	assert.True(t, IsTracked(s, m))
	assert.Equal(t, 1, s.Tracked())

	other := savedMemo()
	other.ID = 2
	require.NoError(t, TrackAll(s, []memo{*other}))
	assert.Equal(t, 2, s.Tracked())

	require.NoError(t, Detach(s, m))
	assert.False(t, IsTracked(s, m))

	s.Clear()
	assert.Zero(t, s.Tracked())

	err := Track(s, &memo{Title: "new"})
	assert.ErrorIs(t, err, runtime.ErrInvalidModel)
}

func TestSession_MergeKeepsOtherTransactions(t *testing.T) {
	s := newTestSession(t)
	m := savedMemo()
	require.NoError(t, Track(s, m))

	// Both transactions start while the memo reads "text".
	a := s.child(s.DB())
	b := s.child(s.DB())

	m.Body = "from b"
	require.NoError(t, Track(b, m))
	s.merge(b)

	other := savedMemo()
	other.ID = 2
	require.NoError(t, Track(a, other))
	s.merge(a)

	assert.Equal(t, 2, s.Tracked())
	snap, ok := s.snapshot(entityKey{table: "tbl_memo", id: int64(1)})
	require.True(t, ok)
	assert.Equal(t, "from b", snap["body"])

	c := s.child(s.DB())
	require.NoError(t, Detach(c, other))
	assert.Equal(t, 2, s.Tracked())
	s.merge(c)
	assert.Equal(t, 1, s.Tracked())

	d := s.child(s.DB())
	d.Clear()
	s.merge(d)
	assert.Zero(t, s.Tracked())
}

func TestSession_ConcurrentMerge(t *testing.T) {
	s := newTestSession(t)
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx := s.child(s.DB())
			m := savedMemo()
			m.ID = int64(i + 1)
			assert.NoError(t, Track(tx, m))
			s.merge(tx)
		}()
	}
	wg.Wait()
	assert.Equal(t, 16, s.Tracked())
}

func TestSave_Unchanged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := newTestSession(t, WithLogger(zap.New(core)))
	m := savedMemo()
	require.NoError(t, Track(s, m))

	// No executor is bound, so any SQL would fail.
	require.NoError(t, Save(context.Background(), s, m))
	assert.Equal(t, 1, logs.FilterMessage("entity unchanged").Len())

	m.Draft = "transient"
	m.UpdatedAt = time.Now()
	require.NoError(t, Save(context.Background(), s, m))
}

func TestSave_DefaultsOnlyOnInsert(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	// An update keeps an explicit zero value. The save reaches the
	// database, which is not bound here.
	m := savedMemo()
	require.NoError(t, Track(s, m))
	m.Body = ""
	assert.Error(t, Save(ctx, s, m))
	assert.Empty(t, m.Body)

	// A new entity gets its defaults before validation.
	fresh := &memo{Title: "nope"}
	assert.ErrorIs(t, Save(ctx, s, fresh), errRejected)
	assert.Equal(t, "(empty)", fresh.Body)
}

func TestSave_ValidationRunsBeforeSQL(t *testing.T) {
	s := newTestSession(t)
	ctx := context.Background()

	err := Save[memo](ctx, s, nil)
	assert.ErrorIs(t, err, runtime.ErrInvalidModel)

	m := savedMemo()
	m.Title = "far too long"
	err = Save(ctx, s, m)
	assert.True(t, runtime.IsConstraintViolation(err, runtime.LengthViolation), "got %v", err)

	m.Title = ""
	err = Save(ctx, s, m)
	assert.True(t, runtime.IsConstraintViolation(err, runtime.NotNullViolation), "got %v", err)

	m.Title = "nope"
	assert.ErrorIs(t, Save(ctx, s, m), errRejected)
}

func TestSession_Timestamp(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 18, 30, 0, 123456789, time.FixedZone("KST", 9*3600))
	s := newTestSession(t, WithClock(func() time.Time { return fixed }))

	got := s.timestamp()
	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, 123456000, got.Nanosecond())
	assert.True(t, got.Equal(fixed.Truncate(time.Microsecond)))
}

func TestDelete_ZeroKey(t *testing.T) {
	s := newTestSession(t)
	deleted, err := Delete(context.Background(), s, &memo{Title: "new"})
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = Delete[memo](context.Background(), s, nil)
	assert.ErrorIs(t, err, runtime.ErrInvalidModel)
}
