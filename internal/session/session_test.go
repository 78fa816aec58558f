package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/projectpulse/pulsebot/internal/survey"
)

func TestLazyCreation(t *testing.T) {
	created := 0
	m := NewManager(func() { created++ })

	sc := m.Get(42)
	assert.Empty(t, sc.ProjectKey)
	assert.Empty(t, sc.PendingQuestion)
	assert.Equal(t, 1, created)

	m.Get(42)
	assert.Equal(t, 1, created, "second access must reuse the session")

	m.Get(43)
	assert.Equal(t, 2, created)
}

func TestUpdatePreservesOtherSlot(t *testing.T) {
	m := NewManager(nil)

	m.Update(42, func(c *Context) {
		c.ProjectKey = "ABC"
		c.PendingQuestion = survey.QuestionStage
	})
	m.Update(42, func(c *Context) {
		c.PendingQuestion = ""
	})

	sc := m.Get(42)
	assert.Equal(t, "ABC", sc.ProjectKey)
	assert.Empty(t, sc.PendingQuestion)
}

func TestSessionsAreIndependent(t *testing.T) {
	m := NewManager(nil)

	m.Update(1, func(c *Context) { c.ProjectKey = "ABC" })
	m.Update(2, func(c *Context) { c.ProjectKey = "XYZ" })

	assert.Equal(t, "ABC", m.Get(1).ProjectKey)
	assert.Equal(t, "XYZ", m.Get(2).ProjectKey)
}

func TestConcurrentUpdatesSerialize(t *testing.T) {
	m := NewManager(nil)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Update(42, func(c *Context) { c.ProjectKey = "ABC" })
		}()
	}
	wg.Wait()

	assert.Equal(t, "ABC", m.Get(42).ProjectKey)
}
