package cachestore

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsertThenGet(t *testing.T) {
	s := New()
	assert.True(t, s.Insert("/p", []byte("hello")))
	got, ok := s.Get("/p")
	assert.True(t, ok)
	assert.Equal(t, []byte("hello"), got)
}

func TestInsertThenRemoveThenGetMisses(t *testing.T) {
	s := New()
	s.Insert("/p", []byte("hello"))
	prev, ok := s.Remove("/p")
	assert.True(t, ok)
	assert.Equal(t, []byte("hello"), prev)

	_, ok = s.Get("/p")
	assert.False(t, ok)
}

func TestInsertEmptyRejected(t *testing.T) {
	s := New()
	assert.False(t, s.Insert("/p", nil))
	assert.False(t, s.Insert("/p", []byte{}))
	_, ok := s.Get("/p")
	assert.False(t, ok)
}

func TestRemoveMissingReturnsFalse(t *testing.T) {
	s := New()
	_, ok := s.Remove("/nope")
	assert.False(t, ok)
}

func TestConcurrentReadersWriters(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Insert("/p", []byte("v"))
		}()
		go func() {
			defer wg.Done()
			_, _ = s.Get("/p")
		}()
	}
	wg.Wait()
	got, ok := s.Get("/p")
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)
}
