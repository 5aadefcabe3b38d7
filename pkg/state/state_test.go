package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("should seed initial values", func(t *testing.T) {
		s, err := New(map[string]any{"count": 3, "name": "rotor"})
		require.NoError(t, err)

		assert.Equal(t, 3.0, s.Get("count"))
		assert.Equal(t, "rotor", s.Get("name"))
	})

	t.Run("should reject non-serializable initial values", func(t *testing.T) {
		_, err := New(map[string]any{"fn": func() {}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not JSON serializable")
	})
}

func TestSet(t *testing.T) {
	t.Run("should reject non-serializable values with the key in the error", func(t *testing.T) {
		s, err := New(nil)
		require.NoError(t, err)

		err = s.Set("bad", make(chan int))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"bad"`)
	})

	t.Run("should not see later mutation of the written value", func(t *testing.T) {
		s, err := New(nil)
		require.NoError(t, err)

		value := map[string]any{"inner": "original"}
		require.NoError(t, s.Set("key", value))
		value["inner"] = "mutated"

		stored := s.Get("key").(map[string]any)
		assert.Equal(t, "original", stored["inner"])
	})
}

func TestGet(t *testing.T) {
	t.Run("should return nil for missing keys", func(t *testing.T) {
		s, err := New(nil)
		require.NoError(t, err)
		assert.Nil(t, s.Get("missing"))
	})

	t.Run("should hand out independent copies", func(t *testing.T) {
		s, err := New(map[string]any{"nested": map[string]any{"list": []any{"a"}}})
		require.NoError(t, err)

		first := s.Get("nested").(map[string]any)
		first["list"].([]any)[0] = "mutated"

		second := s.Get("nested").(map[string]any)
		assert.Equal(t, "a", second["list"].([]any)[0])
	})
}

func TestDeleteAndAll(t *testing.T) {
	t.Run("should delete keys and snapshot the rest", func(t *testing.T) {
		s, err := New(map[string]any{"keep": 1, "drop": 2})
		require.NoError(t, err)

		s.Delete("drop")

		all := s.All()
		assert.Len(t, all, 1)
		assert.Equal(t, 1.0, all["keep"])
		assert.Nil(t, s.Get("drop"))
	})
}
