package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type directory map[string]bool

func (d directory) HasPatient(id string) bool { return d[id] }

func TestLoginLogoutTransitions(t *testing.T) {
	dir := directory{"101": true}
	start := New(time.Now())
	require.False(t, start.Authenticated)
	require.Equal(t, ViewLogin, start.View)

	trim := func(s string) string { return strings.TrimSuffix(s, ".0") }
	in, err := Login(start, Credentials{PatientID: " 101.0 "}, dir, trim)
	require.NoError(t, err)
	require.True(t, in.Authenticated)
	require.Equal(t, "101", in.PatientID)
	require.Equal(t, ViewOverview, in.View)
	require.Equal(t, start.ID, in.ID)
	require.False(t, start.Authenticated, "input session must not change")

	hist, err := SelectView(in, ViewHistory)
	require.NoError(t, err)
	require.Equal(t, ViewHistory, hist.View)

	out := Logout(hist)
	require.False(t, out.Authenticated)
	require.Empty(t, out.PatientID)
	require.Equal(t, ViewLogin, out.View)
}

func TestLoginRejectsUnknownPatient(t *testing.T) {
	start := New(time.Now())

	same, err := Login(start, Credentials{PatientID: "999"}, directory{}, nil)
	require.ErrorIs(t, err, ErrPatientUnknown)
	require.Equal(t, start, same)

	_, err = Login(start, Credentials{PatientID: "  "}, directory{}, nil)
	require.ErrorIs(t, err, ErrEmptyPatientID)
}

func TestSelectViewRequiresLogin(t *testing.T) {
	_, err := SelectView(New(time.Now()), ViewHistory)
	require.ErrorIs(t, err, ErrNotAuthenticated)

	in, err := Login(New(time.Now()), Credentials{PatientID: "1"}, directory{"1": true}, nil)
	require.NoError(t, err)
	_, err = SelectView(in, View("settings"))
	require.ErrorIs(t, err, ErrUnknownView)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, time.Minute)
	ctx := context.Background()

	s, err := Login(New(time.Now()), Credentials{PatientID: "7"}, directory{"7": true}, nil)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, s))
	require.True(t, mr.Exists("vitals:session:"+s.ID))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, s.PatientID, got.PatientID)
	require.True(t, got.Authenticated)

	mr.FastForward(2 * time.Minute)
	_, err = store.Get(ctx, s.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStoreDelete(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	ctx := context.Background()

	s := New(time.Now())
	require.NoError(t, store.Save(ctx, s))
	require.NoError(t, store.Delete(ctx, s.ID))
	_, err := store.Get(ctx, s.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	s := New(now)
	require.NoError(t, store.Save(ctx, s))
	_, err := store.Get(ctx, s.ID)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = store.Get(ctx, s.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStorePrunesExpired(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Save(ctx, New(now)))
	}
	require.Len(t, store.sessions, 3)

	now = now.Add(2 * time.Minute)
	fresh := New(now)
	require.NoError(t, store.Save(ctx, fresh))
	require.Len(t, store.sessions, 1)
	_, err := store.Get(ctx, fresh.ID)
	require.NoError(t, err)
}
