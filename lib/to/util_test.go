package to

import (
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestEmpty(t *testing.T) {
	t.Run("nil string", func(t *testing.T) {
		assert.Equal(t, "", Empty((*string)(nil)))
	})
	t.Run("string", func(t *testing.T) {
		v := "hello"
		assert.Equal(t, "hello", Empty(&v))
	})
	t.Run("nil int", func(t *testing.T) {
		assert.Equal(t, 0, Empty((*int)(nil)))
	})
}

func TestNilString(t *testing.T) {
	t.Run("empty string", func(t *testing.T) {
		assert.Nil(t, NilString(""))
	})
	t.Run("non-empty string", func(t *testing.T) {
		assert.Equal(t, "x", *NilString("x"))
	})
}

func TestEmptyString(t *testing.T) {
	assert.Equal(t, "", EmptyString(nil))
	assert.Equal(t, "x", EmptyString(Ptr("x")))
}
