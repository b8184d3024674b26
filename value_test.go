package stratum_test

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/stratum"
)

type valueTestPayload struct {
	Items []int
}

type valueTestCloned struct {
	Items []int
}

func (c valueTestCloned) Clone() valueTestCloned {
	return valueTestCloned{Items: append([]int(nil), c.Items...)}
}

func TestKey(t *testing.T) {
	t.Run("same type same key", func(t *testing.T) {
		assert.Equal(t, stratum.KeyOf[*valueTestPayload](), stratum.KeyOf[*valueTestPayload]())
		assert.Equal(t, stratum.KeyOf[int](), stratum.KeyFor(reflect.TypeOf(0)))
	})

	t.Run("distinct types distinct keys", func(t *testing.T) {
		assert.NotEqual(t, stratum.KeyOf[valueTestPayload](), stratum.KeyOf[*valueTestPayload]())
		assert.NotEqual(t, stratum.KeyOf[io.Reader](), stratum.KeyOf[*strings.Reader]())
	})

	t.Run("interface keys stay interfaces", func(t *testing.T) {
		assert.Equal(t, reflect.Interface, stratum.KeyOf[io.Reader]().Type().Kind())
	})

	t.Run("names", func(t *testing.T) {
		key := stratum.KeyOf[*valueTestPayload]()
		assert.Equal(t, "*valueTestPayload", key.Name())
		assert.Equal(t, "*stratum_test.valueTestPayload", key.String())
	})

	t.Run("zero key", func(t *testing.T) {
		var key stratum.Key
		assert.True(t, key.IsZero())
		assert.Equal(t, "<nil>", key.String())
		assert.True(t, stratum.KeyFor(nil).IsZero())
	})
}

func TestWrapUnwrap(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		payload := &valueTestPayload{Items: []int{1}}
		v := stratum.Wrap(payload)

		assert.Equal(t, stratum.KeyOf[*valueTestPayload](), v.Key())
		assert.False(t, v.IsZero())

		got, err := stratum.Unwrap[*valueTestPayload](v)
		require.NoError(t, err)
		assert.Same(t, payload, got)
	})

	t.Run("failed unwrap keeps the value", func(t *testing.T) {
		v := stratum.Wrap(42)

		_, err := stratum.Unwrap[string](v)
		require.Error(t, err)

		var mismatch *stratum.TypeMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, stratum.KeyOf[string](), mismatch.Expected)
		assert.Equal(t, stratum.KeyOf[int](), mismatch.Actual)
		assert.Equal(t, "unwrap", mismatch.Context)

		n, err := stratum.Unwrap[int](v)
		require.NoError(t, err)
		assert.Equal(t, 42, n)
	})

	t.Run("static type decides the key", func(t *testing.T) {
		v := stratum.Wrap[io.Reader](strings.NewReader("x"))
		assert.Equal(t, stratum.KeyOf[io.Reader](), v.Key())

		_, err := stratum.Unwrap[*strings.Reader](v)
		assert.True(t, stratum.IsTypeMismatch(err))
	})

	t.Run("nil interface", func(t *testing.T) {
		v := stratum.Wrap[io.Reader](nil)

		r, err := stratum.Unwrap[io.Reader](v)
		require.NoError(t, err)
		assert.Nil(t, r)
	})

	t.Run("zero value", func(t *testing.T) {
		var v stratum.Value
		assert.True(t, v.IsZero())

		_, err := stratum.Unwrap[int](v)
		assert.True(t, stratum.IsTypeMismatch(err))
	})
}

func TestWrapAs(t *testing.T) {
	tests := []struct {
		name    string
		key     stratum.Key
		value   any
		wantErr error
	}{
		{"exact type", stratum.KeyOf[*valueTestPayload](), &valueTestPayload{}, nil},
		{"interface implemented", stratum.KeyOf[io.Reader](), strings.NewReader(""), nil},
		{"nil pointer", stratum.KeyOf[*valueTestPayload](), nil, nil},
		{"nil interface", stratum.KeyOf[io.Reader](), nil, nil},
		{"wrong type", stratum.KeyOf[*valueTestPayload](), valueTestPayload{}, stratum.ErrTypeMismatch},
		{"interface not implemented", stratum.KeyOf[io.Reader](), 1, stratum.ErrTypeMismatch},
		{"nil for struct", stratum.KeyOf[valueTestPayload](), nil, stratum.ErrTypeMismatch},
		{"zero key", stratum.Key{}, 1, stratum.ErrKeyZero},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := stratum.WrapAs(tt.key, tt.value)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, v.IsZero())
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.key, v.Key())
		})
	}

	t.Run("nil pointer unwraps", func(t *testing.T) {
		v, err := stratum.WrapAs(stratum.KeyOf[*valueTestPayload](), nil)
		require.NoError(t, err)

		p, err := stratum.Unwrap[*valueTestPayload](v)
		require.NoError(t, err)
		assert.Nil(t, p)
	})
}

func TestSyncValue(t *testing.T) {
	key := stratum.KeyOf[*valueTestPayload]()

	t.Run("round trip", func(t *testing.T) {
		payload := &valueTestPayload{}

		s, err := stratum.Wrap(payload).Sync(key)
		require.NoError(t, err)
		assert.Equal(t, key, s.Key())

		v, err := s.Unsync(key)
		require.NoError(t, err)

		got, err := stratum.Unwrap[*valueTestPayload](v)
		require.NoError(t, err)
		assert.Same(t, payload, got)
	})

	t.Run("sync checks the key", func(t *testing.T) {
		_, err := stratum.Wrap(1).Sync(key)

		var mismatch *stratum.TypeMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, "sync conversion", mismatch.Context)
	})

	t.Run("unsync checks the key", func(t *testing.T) {
		s, err := stratum.Wrap(1).Sync(stratum.KeyOf[int]())
		require.NoError(t, err)

		_, err = s.Unsync(key)

		var mismatch *stratum.TypeMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, "unsync conversion", mismatch.Context)
	})
}

func TestSplitters(t *testing.T) {
	t.Run("copy shares pointees", func(t *testing.T) {
		key := stratum.KeyOf[*valueTestPayload]()
		payload := &valueTestPayload{}

		s, err := stratum.Wrap(payload).Sync(key)
		require.NoError(t, err)

		retained, out, err := stratum.CopySplitter(key)(s)
		require.NoError(t, err)

		v, err := out.Unsync(key)
		require.NoError(t, err)
		copied, err := stratum.Unwrap[*valueTestPayload](v)
		require.NoError(t, err)

		copied.Items = append(copied.Items, 1)

		v, err = retained.Unsync(key)
		require.NoError(t, err)
		kept, err := stratum.Unwrap[*valueTestPayload](v)
		require.NoError(t, err)
		assert.Equal(t, []int{1}, kept.Items)
	})

	t.Run("clone duplicates", func(t *testing.T) {
		key := stratum.KeyOf[valueTestCloned]()

		s, err := stratum.Wrap(valueTestCloned{Items: []int{1}}).Sync(key)
		require.NoError(t, err)

		retained, out, err := stratum.CloneSplitter[valueTestCloned]()(s)
		require.NoError(t, err)

		v, err := out.Unsync(key)
		require.NoError(t, err)
		copied, err := stratum.Unwrap[valueTestCloned](v)
		require.NoError(t, err)
		copied.Items[0] = 99

		v, err = retained.Unsync(key)
		require.NoError(t, err)
		kept, err := stratum.Unwrap[valueTestCloned](v)
		require.NoError(t, err)
		assert.Equal(t, []int{1}, kept.Items)
	})

	t.Run("splitters check the key", func(t *testing.T) {
		s, err := stratum.Wrap(1).Sync(stratum.KeyOf[int]())
		require.NoError(t, err)

		for name, split := range map[string]stratum.Splitter{
			"copy":  stratum.CopySplitter(stratum.KeyOf[string]()),
			"clone": stratum.CloneSplitter[string](),
		} {
			_, _, err := split(s)

			var mismatch *stratum.TypeMismatchError
			require.ErrorAs(t, err, &mismatch, name)
			assert.Equal(t, "split", mismatch.Context, name)
			assert.False(t, errors.Is(err, stratum.ErrNotFound), name)
		}
	})
}
