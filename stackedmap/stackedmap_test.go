// Copyright (c) 2026 The Stakemesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stackedmap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stakemesh/stakemesh/stackedmap"
)

func TestStackedMap(t *testing.T) {
	src := map[string]string{"base": "b"}
	sm := stackedmap.New(func(key string) (string, bool, error) {
		v, ok := src[key]
		return v, ok, nil
	})

	v, ok, err := sm.Get("base")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b", v)

	sm.Push()
	sm.Put("k1", "v1")

	v, ok, _ = sm.Get("k1")
	assert.True(t, ok)
	assert.Equal(t, "v1", v)

	depth := sm.Push()
	sm.Put("k1", "v2")
	v, _, _ = sm.Get("k1")
	assert.Equal(t, "v2", v)

	sm.PopTo(depth)
	v, _, _ = sm.Get("k1")
	assert.Equal(t, "v1", v)

	sm.Pop()
	_, ok, _ = sm.Get("k1")
	assert.False(t, ok)
	assert.Zero(t, sm.Depth())
}

func TestStackedMapJournal(t *testing.T) {
	sm := stackedmap.New(func(key string) (string, bool, error) {
		return "", false, nil
	})

	sm.Push()
	sm.Put("a", "1")
	sm.Push()
	sm.Put("b", "2")
	sm.Put("a", "3")

	var got []string
	sm.Journal(func(k, v string) bool {
		got = append(got, k+v)
		return true
	})
	assert.Equal(t, []string{"a1", "b2", "a3"}, got)

	// reverted levels drop out of the journal
	sm.Pop()
	got = got[:0]
	sm.Journal(func(k, v string) bool {
		got = append(got, k+v)
		return true
	})
	assert.Equal(t, []string{"a1"}, got)
}
