package secure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassphrase_Use(t *testing.T) {
	t.Parallel()

	p := NewPassphrase([]byte("correct horse battery"))
	defer p.Destroy()

	var seen string
	err := p.Use(func(plaintext []byte) error {
		seen = string(plaintext)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "correct horse battery", seen)
}

func TestPassphrase_UseAfterDestroy(t *testing.T) {
	t.Parallel()

	p := NewPassphrase([]byte("secret"))
	p.Destroy()
	p.Destroy() // idempotent

	err := p.Use(func(plaintext []byte) error {
		assert.Nil(t, plaintext)
		return nil
	})
	require.NoError(t, err)
}

func TestPassphrase_RepeatUse(t *testing.T) {
	t.Parallel()

	p := NewPassphrase([]byte("secret"))
	defer p.Destroy()

	for i := 0; i < 3; i++ {
		err := p.Use(func(plaintext []byte) error {
			assert.Equal(t, "secret", string(plaintext))
			return nil
		})
		require.NoError(t, err)
	}
}
