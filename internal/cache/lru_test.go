// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package cache

import (
	"sync"
	"testing"
	"time"
)

func TestLRU_BasicOperations(t *testing.T) {
	c := NewLRU[int, string](3, 0)

	c.Add(1, "root")
	c.Add(2, "bacteria")
	c.Add(2759, "eukaryota")

	for _, k := range []int{1, 2, 2759} {
		if _, found := c.Get(k); !found {
			t.Errorf("expected to find key %d", k)
		}
	}
	if size := c.Stats().Size; size != 3 {
		t.Errorf("expected size 3, got %d", size)
	}
}

func TestLRU_Eviction(t *testing.T) {
	c := NewLRU[string, int](3, 0)

	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("c", 3)

	// 'a' becomes most recently used, so 'b' is evicted next.
	c.Get("a")
	c.Add("d", 4)

	if _, found := c.Get("b"); found {
		t.Error("expected 'b' to be evicted")
	}
	for _, k := range []string{"a", "c", "d"} {
		if _, found := c.Get(k); !found {
			t.Errorf("expected %q to be present", k)
		}
	}
	if got := c.Stats().Evictions; got != 1 {
		t.Errorf("expected 1 eviction, got %d", got)
	}
}

func TestLRU_TTLExpiration(t *testing.T) {
	c := NewLRU[string, int](10, 20*time.Millisecond)
	c.Add("k", 1)

	if _, found := c.Get("k"); !found {
		t.Fatal("expected key before expiry")
	}
	time.Sleep(40 * time.Millisecond)
	if _, found := c.Get("k"); found {
		t.Error("expected key to expire")
	}
}

func TestLRU_UpdateMovesToFront(t *testing.T) {
	c := NewLRU[string, int](2, 0)
	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("a", 10)
	c.Add("c", 3)

	if v, found := c.Get("a"); !found || v != 10 {
		t.Errorf("expected updated a=10, got %d (found=%v)", v, found)
	}
	if _, found := c.Get("b"); found {
		t.Error("expected 'b' to be evicted")
	}
}

func TestLRU_Stats(t *testing.T) {
	c := NewLRU[string, int](5, 0)
	c.Add("a", 1)
	c.Get("a")
	c.Get("missing")

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.Size != 1 {
		t.Errorf("unexpected stats %+v", s)
	}
	if s.HitRate() != 0.5 {
		t.Errorf("expected hit rate 0.5, got %f", s.HitRate())
	}
	if (Stats{}).HitRate() != 0 {
		t.Error("zero stats should have zero hit rate")
	}
}

func TestLRU_Concurrent(t *testing.T) {
	c := NewLRU[int, int](100, 0)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				c.Add(base*1000+i, i)
				c.Get(base*1000 + i)
			}
		}(g)
	}
	wg.Wait()

	if size := c.Stats().Size; size > 100 {
		t.Errorf("cache exceeded capacity: %d", size)
	}
}
