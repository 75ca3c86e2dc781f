package badgerstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-verification-room/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedRoom(t *testing.T, s *Store, candidateID, roomID, recruiter string, createdAt time.Time) (*domain.Candidate, *domain.Room) {
	t.Helper()
	c := &domain.Candidate{
		CandidateID:    candidateID,
		Name:           "Ann",
		Email:          "ann@x.io",
		Skills:         "Go",
		Experience:     "5y",
		EmployerEmail:  "hr@y.io",
		RecruiterEmail: recruiter,
		RoomID:         roomID,
		Status:         domain.CandidateStatusPending,
		CreatedAt:      createdAt,
	}
	room := domain.NewRoom(roomID, c, createdAt)
	require.NoError(t, s.CreateRoom(context.Background(), c, room))
	return c, room
}

func TestCreateRoom_AndFind(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c, _ := seedRoom(t, s, "c1", "r1", "rec@z.io", time.Now().UTC())

	room, err := s.FindRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "c1", room.CandidateID)
	assert.NotNil(t, room.Participants.Recruiter.JoinedAt)
	assert.Nil(t, room.Participants.Candidate.JoinedAt)
	assert.Equal(t, "ann@x.io", room.Participants.Candidate.Email)
	assert.Empty(t, room.Messages)
	assert.NotNil(t, room.Messages)

	got, err := s.GetCandidate(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, c.Email, got.Email)
	assert.Equal(t, "r1", got.RoomID)
}

func TestCreateRoom_RefusesOverwrite(t *testing.T) {
	s := newTestStore(t)
	seedRoom(t, s, "c1", "r1", "rec@z.io", time.Now().UTC())

	c := &domain.Candidate{CandidateID: "c2", RecruiterEmail: "rec@z.io", CreatedAt: time.Now().UTC()}
	err := s.CreateRoom(context.Background(), c, domain.NewRoom("r1", c, time.Now().UTC()))
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = s.GetCandidate(context.Background(), "c2")
	assert.ErrorIs(t, err, domain.ErrNotFound, "a refused creation must not leave a candidate behind")
}

func TestFindRoom_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.FindRoom(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAppendMessage_AssignsSeqAndMonotonicTime(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedRoom(t, s, "c1", "r1", "rec@z.io", time.Now().UTC())

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	first := &domain.Message{Sender: domain.SystemSender, Body: "one", ServerTimestamp: base, IsSystemGenerated: true}
	require.NoError(t, s.AppendMessage(ctx, "r1", first))
	// A clock that stepped backwards must not reorder the history.
	second := &domain.Message{Sender: domain.SystemSender, Body: "two", ServerTimestamp: base.Add(-time.Second)}
	require.NoError(t, s.AppendMessage(ctx, "r1", second))

	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(2), second.Seq)
	assert.True(t, second.ServerTimestamp.After(first.ServerTimestamp))

	msgs, err := s.ListMessages(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "one", msgs[0].Body)
	assert.Equal(t, "two", msgs[1].Body)
	assert.True(t, msgs[0].IsSystemGenerated)
}

func TestAppendMessage_UnknownRoom(t *testing.T) {
	s := newTestStore(t)
	err := s.AppendMessage(context.Background(), "ghost", &domain.Message{Body: "hi"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.FindRoom(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound, "append must never create a room")
}

func TestAppendMessage_ConcurrentWritersLoseNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedRoom(t, s, "c1", "r1", "rec@z.io", time.Now().UTC())

	const n = 25
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.AppendMessage(ctx, "r1", &domain.Message{
				Sender: domain.Sender{Name: "Ann", Role: domain.RoleCandidate},
				Body:   fmt.Sprintf("m%d", i),
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	msgs, err := s.ListMessages(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, msgs, n)
	bodies := make(map[string]bool, n)
	for i, m := range msgs {
		assert.Equal(t, int64(i+1), m.Seq)
		if i > 0 {
			assert.True(t, m.ServerTimestamp.After(msgs[i-1].ServerTimestamp))
		}
		bodies[m.Body] = true
	}
	assert.Len(t, bodies, n)

	room, err := s.FindRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, int64(n), room.MessageCount)
}

func TestMarkJoined_OnlyOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedRoom(t, s, "c1", "r1", "rec@z.io", time.Now().UTC())

	first := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	marked, err := s.MarkJoined(ctx, "r1", domain.RoleCandidate, first)
	require.NoError(t, err)
	assert.True(t, marked)

	marked, err = s.MarkJoined(ctx, "r1", domain.RoleCandidate, first.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, marked)

	room, err := s.FindRoom(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, room.Participants.Candidate.JoinedAt)
	assert.True(t, first.Equal(*room.Participants.Candidate.JoinedAt))

	marked, err = s.MarkJoined(ctx, "r1", domain.RoleRecruiter, first)
	require.NoError(t, err)
	assert.False(t, marked, "recruiter is pre-joined at creation")

	_, err = s.MarkJoined(ctx, "ghost", domain.RoleEmployer, first)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListCandidatesByRecruiter_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	seedRoom(t, s, "old", "r-old", "rec@z.io", base)
	seedRoom(t, s, "new", "r-new", "rec@z.io", base.Add(time.Hour))
	seedRoom(t, s, "other", "r-other", "someone@z.io", base.Add(2*time.Hour))

	list, err := s.ListCandidatesByRecruiter(context.Background(), "rec@z.io")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].CandidateID)
	assert.Equal(t, "old", list[1].CandidateID)

	none, err := s.ListCandidatesByRecruiter(context.Background(), "nobody@z.io")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPing(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	assert.NoError(t, s.Ping(context.Background()))

	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Ping(context.Background()), domain.ErrUnavailable)
}

func TestClosedStoreReportsUnavailable(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	c, room := seedRoom(t, s, "c1", "r1", "rec@z.io", time.Now().UTC())
	require.NoError(t, s.Close())
	ctx := context.Background()

	_, err = s.FindRoom(ctx, "r1")
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	_, err = s.GetCandidate(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	_, err = s.ListMessages(ctx, "r1")
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	_, err = s.ListCandidatesByRecruiter(ctx, "rec@z.io")
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	_, err = s.MarkJoined(ctx, "r1", domain.RoleCandidate, time.Now())
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.ErrorIs(t, s.AppendMessage(ctx, "r1", &domain.Message{Body: "hi"}), domain.ErrUnavailable)

	c.CandidateID, room.RoomID = "c2", "r2"
	assert.ErrorIs(t, s.CreateRoom(ctx, c, room), domain.ErrUnavailable)
}
