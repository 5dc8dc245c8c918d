package history

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppend_AssignsIdentityAndTimestamp(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.Append(ctx, RoleUser, "What is your email?")
	require.NoError(t, err)
	second, err := s.Append(ctx, RoleAssistant, "My email is bagatejuily15@gmail.com.")
	require.NoError(t, err)

	require.Positive(t, first.ID)
	require.Greater(t, second.ID, first.ID)
	require.False(t, first.CreatedAt.IsZero())
	require.False(t, second.CreatedAt.Before(first.CreatedAt))
	require.Equal(t, RoleAssistant, second.Role)
}

func TestAppend_RejectsInvalidTurns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Append(ctx, Role("system"), "hello")
	require.ErrorIs(t, err, ErrInvalidTurn)

	_, err = s.Append(ctx, RoleUser, "   ")
	require.ErrorIs(t, err, ErrInvalidTurn)

	turns, err := s.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, turns)
}

func TestListRecent_ChronologicalAndBounded(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		_, err := s.Append(ctx, role, fmt.Sprintf("turn %d", i))
		require.NoError(t, err)
	}

	turns, err := s.ListRecent(ctx, 20)
	require.NoError(t, err)
	require.Len(t, turns, 20)

	// the 20 newest, oldest first
	require.Equal(t, "turn 10", turns[0].Content)
	require.Equal(t, "turn 29", turns[19].Content)
	for i := 1; i < len(turns); i++ {
		require.False(t, turns[i].CreatedAt.Before(turns[i-1].CreatedAt))
		require.Greater(t, turns[i].ID, turns[i-1].ID)
	}

	all, err := s.ListRecent(ctx, 100)
	require.NoError(t, err)
	require.Len(t, all, 30)

	none, err := s.ListRecent(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestClear_RemovesEverything(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, c := range []string{"a", "b", "c"} {
		_, err := s.Append(ctx, RoleUser, c)
		require.NoError(t, err)
	}

	n, err := s.Clear(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	turns, err := s.ListRecent(ctx, 20)
	require.NoError(t, err)
	require.Empty(t, turns)

	n, err = s.Clear(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestStore_ErrorsAfterClose(t *testing.T) {
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	ctx := context.Background()
	var storeErr *StoreError

	_, err = s.Append(ctx, RoleUser, "hi")
	require.True(t, errors.As(err, &storeErr))
	require.Equal(t, "append", storeErr.Op)

	_, err = s.ListRecent(ctx, 5)
	require.True(t, errors.As(err, &storeErr))

	_, err = s.Clear(ctx)
	require.True(t, errors.As(err, &storeErr))
	require.Equal(t, "clear", storeErr.Op)

	require.Error(t, s.Ping(ctx))
}

func TestClear_RollsBackOnFailure(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, c := range []string{"q1", "a1", "q2"} {
		_, err := s.Append(ctx, RoleUser, c)
		require.NoError(t, err)
	}

	// abort the delete partway through, after the first row is gone
	_, err := s.db.ExecContext(ctx, `CREATE TRIGGER block_clear BEFORE DELETE ON messages
		WHEN old.id = 2 BEGIN SELECT RAISE(ABORT, 'clear blocked'); END;`)
	require.NoError(t, err)

	n, err := s.Clear(ctx)
	require.Zero(t, n)
	var storeErr *StoreError
	require.True(t, errors.As(err, &storeErr), "got %v", err)
	require.Equal(t, "clear", storeErr.Op)

	turns, err := s.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	require.Equal(t, "q1", turns[0].Content)
	require.Equal(t, "q2", turns[2].Content)
}

func TestOpen_ReopenKeepsTurns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = s.Append(ctx, RoleUser, "persisted")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	turns, err := s.ListRecent(ctx, 20)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	require.Equal(t, "persisted", turns[0].Content)
}

func TestAppend_Concurrent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Append(ctx, RoleUser, fmt.Sprintf("msg %d", i))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	turns, err := s.ListRecent(ctx, 50)
	require.NoError(t, err)
	require.Len(t, turns, 20)
}
