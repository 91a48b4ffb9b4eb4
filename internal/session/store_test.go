package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youruser/cardbatch/internal/template"
)

func TestCreateWithDelete(t *testing.T) {
	s := NewStore()
	sess := s.Create(template.New(0))
	require.NotEmpty(t, sess.ID)
	assert.Equal(t, 1, s.Len())

	err := s.With(sess.ID, func(got *Session) error {
		assert.Same(t, sess, got)
		got.Template.AddPlaceholder("name")
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, sess.Template.Placeholders(), 1)

	boom := errors.New("boom")
	assert.ErrorIs(t, s.With(sess.ID, func(*Session) error { return boom }), boom)

	require.NoError(t, s.Delete(sess.ID))
	assert.ErrorIs(t, s.Delete(sess.ID), ErrNotFound)
	assert.ErrorIs(t, s.With(sess.ID, func(*Session) error { return nil }), ErrNotFound)
}

func TestWithSerializes(t *testing.T) {
	s := NewStore()
	sess := s.Create(template.New(0))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.With(sess.ID, func(got *Session) error {
				got.Template.AddPlaceholder("f")
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Len(t, sess.Template.Placeholders(), 50)
}

func TestSweep(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore()
	s.now = func() time.Time { return now }

	old := s.Create(template.New(0))
	now = now.Add(90 * time.Minute)
	fresh := s.Create(template.New(0))
	now = now.Add(45 * time.Minute)

	assert.Equal(t, 1, s.Sweep(2*time.Hour))
	assert.ErrorIs(t, s.With(old.ID, func(*Session) error { return nil }), ErrNotFound)
	assert.NoError(t, s.With(fresh.ID, func(*Session) error { return nil }))
}

func TestWithSessionRemovedWhileWaiting(t *testing.T) {
	s := NewStore()
	sess := s.Create(template.New(0))

	sess.mu.Lock()
	done := make(chan error, 1)
	called := false
	go func() {
		done <- s.With(sess.ID, func(*Session) error {
			called = true
			return nil
		})
	}()
	// let With find the session and block on its lock
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.Delete(sess.ID))
	sess.mu.Unlock()

	assert.ErrorIs(t, <-done, ErrNotFound)
	assert.False(t, called)
}
