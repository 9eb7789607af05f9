package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Memory_GetSet(t *testing.T) {
	ctx := context.Background()
	testCases := []struct {
		name        string
		setup       map[string]string
		key         string
		expected    string
		expectError error
	}{
		{
			name:        "Missing key",
			key:         "cart",
			expectError: ErrNotFound,
		},
		{
			name:     "Stored key",
			setup:    map[string]string{"cart": `[]`},
			key:      "cart",
			expected: `[]`,
		},
		{
			name:     "Overwrite keeps the latest value",
			setup:    map[string]string{"theme": "light"},
			key:      "theme",
			expected: "light",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			store := NewMemory()
			for k, v := range tc.setup {
				require.NoError(t, store.SetItem(ctx, k, []byte("stale")))
				require.NoError(t, store.SetItem(ctx, k, []byte(v)))
			}
			// when
			value, err := store.GetItem(ctx, tc.key)
			// then
			if tc.expectError != nil {
				assert.ErrorIs(t, err, tc.expectError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, string(value))
		})
	}
}

func Test_Memory_CopiesValues(t *testing.T) {
	// given
	ctx := context.Background()
	store := NewMemory()
	value := []byte("dark")
	require.NoError(t, store.SetItem(ctx, "theme", value))

	// when
	value[0] = 'X'
	got, err := store.GetItem(ctx, "theme")
	require.NoError(t, err)
	got[1] = 'X'
	again, err := store.GetItem(ctx, "theme")

	// then
	require.NoError(t, err)
	assert.Equal(t, "dark", string(again))
}

func Test_Scoped_IsolatesNamespaces(t *testing.T) {
	// given
	ctx := context.Background()
	base := NewMemory()
	tabA := Scoped(base, "session:a")
	tabB := Scoped(base, "session:b")

	// when
	require.NoError(t, tabA.SetItem(ctx, "cart", []byte(`[1]`)))

	// then
	got, err := tabA.GetItem(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, `[1]`, string(got))

	_, err = tabB.GetItem(ctx, "cart")
	assert.ErrorIs(t, err, ErrNotFound)

	raw, err := base.GetItem(ctx, "session:a:cart")
	require.NoError(t, err)
	assert.Equal(t, `[1]`, string(raw))
}
