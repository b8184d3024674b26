package stratum_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/stratum"
)

func TestLifetime(t *testing.T) {
	t.Run("constants", func(t *testing.T) {
		assert.Equal(t, stratum.Lifetime(0), stratum.Transient)
		assert.Equal(t, stratum.Lifetime(1), stratum.Singleton)
		assert.Equal(t, stratum.Lifetime(2), stratum.ThreadScoped)
		assert.Equal(t, stratum.Lifetime(3), stratum.TaskScoped)
	})

	t.Run("String", func(t *testing.T) {
		tests := []struct {
			lifetime stratum.Lifetime
			expected string
		}{
			{stratum.Transient, "Transient"},
			{stratum.Singleton, "Singleton"},
			{stratum.ThreadScoped, "ThreadScoped"},
			{stratum.TaskScoped, "TaskScoped"},
			{stratum.Lifetime(999), "Unknown(999)"},
		}

		for _, tt := range tests {
			assert.Equal(t, tt.expected, tt.lifetime.String())
		}
	})

	t.Run("IsValid", func(t *testing.T) {
		tests := []struct {
			lifetime stratum.Lifetime
			valid    bool
		}{
			{stratum.Transient, true},
			{stratum.Singleton, true},
			{stratum.ThreadScoped, true},
			{stratum.TaskScoped, true},
			{stratum.Lifetime(-1), false},
			{stratum.Lifetime(4), false},
		}

		for _, tt := range tests {
			assert.Equal(t, tt.valid, tt.lifetime.IsValid(), "lifetime %d", int(tt.lifetime))
		}
	})
}

func TestLifetime_Marshaling(t *testing.T) {
	t.Run("MarshalText", func(t *testing.T) {
		data, err := stratum.TaskScoped.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, "TaskScoped", string(data))

		_, err = stratum.Lifetime(7).MarshalText()
		var lifetimeErr *stratum.LifetimeError
		require.ErrorAs(t, err, &lifetimeErr)
		assert.Equal(t, 7, lifetimeErr.Value)
	})

	t.Run("UnmarshalText", func(t *testing.T) {
		tests := []struct {
			text     string
			expected stratum.Lifetime
			wantErr  bool
		}{
			{"Transient", stratum.Transient, false},
			{"transient", stratum.Transient, false},
			{"Singleton", stratum.Singleton, false},
			{"singleton", stratum.Singleton, false},
			{"ThreadScoped", stratum.ThreadScoped, false},
			{"thread_scoped", stratum.ThreadScoped, false},
			{"thread", stratum.ThreadScoped, false},
			{"TaskScoped", stratum.TaskScoped, false},
			{"task_scoped", stratum.TaskScoped, false},
			{"task", stratum.TaskScoped, false},
			{"Scoped", stratum.Transient, true},
			{"", stratum.Transient, true},
		}

		for _, tt := range tests {
			t.Run(tt.text, func(t *testing.T) {
				var lifetime stratum.Lifetime
				err := lifetime.UnmarshalText([]byte(tt.text))

				if tt.wantErr {
					assert.Error(t, err)
					return
				}

				require.NoError(t, err)
				assert.Equal(t, tt.expected, lifetime)
			})
		}
	})

	t.Run("JSON roundtrip", func(t *testing.T) {
		type testStruct struct {
			Lifetime stratum.Lifetime `json:"lifetime"`
		}

		for _, lifetime := range []stratum.Lifetime{stratum.Transient, stratum.Singleton, stratum.ThreadScoped, stratum.TaskScoped} {
			data, err := json.Marshal(testStruct{Lifetime: lifetime})
			require.NoError(t, err)

			var decoded testStruct
			require.NoError(t, json.Unmarshal(data, &decoded))
			assert.Equal(t, lifetime, decoded.Lifetime)
		}
	})

	t.Run("JSON rejects invalid", func(t *testing.T) {
		_, err := json.Marshal(stratum.Lifetime(-3))
		assert.Error(t, err)

		var lifetime stratum.Lifetime
		assert.Error(t, json.Unmarshal([]byte(`"forever"`), &lifetime))
		assert.Error(t, json.Unmarshal([]byte(`3`), &lifetime))
	})
}
