package cache

import (
	"sync"
	"testing"
)

func TestCache(t *testing.T) {
	t.Run("Set and get", func(t *testing.T) {
		c := NewCache[string, int]()
		c.Set("a", 1)

		if val, ok := c.Get("a"); !ok || val != 1 {
			t.Errorf("Expected (1, true), got (%d, %v)", val, ok)
		}
		if _, ok := c.Get("missing"); ok {
			t.Error("Expected miss for unknown key")
		}
	})

	t.Run("GetOrCreate populates once", func(t *testing.T) {
		c := NewCache[string, *sync.Mutex]()

		created := 0
		first := c.GetOrCreate("k", func() *sync.Mutex { created++; return &sync.Mutex{} })
		second := c.GetOrCreate("k", func() *sync.Mutex { created++; return &sync.Mutex{} })

		if created != 1 {
			t.Errorf("Expected create to run once, ran %d times", created)
		}
		if first != second {
			t.Error("Expected the same value on repeated GetOrCreate")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		c := NewCache[string, int]()
		c.Set("a", 1)
		c.Set("b", 2)
		c.Delete("a")

		if _, ok := c.Get("a"); ok {
			t.Error("Expected deleted key to be gone")
		}
		if _, ok := c.Get("b"); !ok {
			t.Error("Expected other keys to survive a delete")
		}
	})

	t.Run("Concurrent access", func(t *testing.T) {
		c := NewCache[int, int]()

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				c.Set(i%10, i)
				c.Get(i % 10)
				c.GetOrCreate(i%10, func() int { return i })
			}(i)
		}
		wg.Wait()

		for key := 0; key < 10; key++ {
			if _, ok := c.Get(key); !ok {
				t.Errorf("Expected key %d to be present", key)
			}
		}
	})
}
