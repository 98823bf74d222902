package prompt

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittoauth/pkg/auth"
)

func TestReader(t *testing.T) {
	t.Run("ReadsLinesInOrder", func(t *testing.T) {
		var out bytes.Buffer
		p := NewReader(strings.NewReader("first\r\nsecond\n"), &out)

		c, err := p.GetSecret(context.Background(), "Password: ", auth.EchoOff)
		require.NoError(t, err)
		assert.Equal(t, "first", c.String())

		c, err = p.GetSecret(context.Background(), "Password: ", auth.EchoOff)
		require.NoError(t, err)
		assert.Equal(t, "second", c.String())
		assert.Equal(t, "Password: Password: ", out.String())
	})

	t.Run("LastLineWithoutNewline", func(t *testing.T) {
		p := NewReader(strings.NewReader("secret"), nil)
		c, err := p.GetSecret(context.Background(), "", auth.EchoOff)
		require.NoError(t, err)
		assert.Equal(t, "secret", c.String())
	})

	t.Run("EOFIsNoInput", func(t *testing.T) {
		p := NewReader(strings.NewReader(""), nil)
		c, err := p.GetSecret(context.Background(), "", auth.EchoOff)
		require.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("EmptyLineIsEmptySecret", func(t *testing.T) {
		p := NewReader(strings.NewReader("\n"), nil)
		c, err := p.GetSecret(context.Background(), "", auth.EchoOff)
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Zero(t, c.Len())
	})

	t.Run("CancelledContext", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		p := NewReader(strings.NewReader("secret\n"), nil)
		_, err := p.GetSecret(ctx, "", auth.EchoOff)
		assert.ErrorIs(t, err, auth.ErrPromptInterrupted)
	})

	t.Run("SwapsSuspendHooks", func(t *testing.T) {
		p := NewReader(strings.NewReader(""), nil)
		h1 := &auth.SuspendHooks{}
		h2 := &auth.SuspendHooks{}
		assert.Nil(t, p.SetSuspendHooks(h1))
		assert.Same(t, h1, p.SetSuspendHooks(h2))
	})
}

func TestNewPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("Matching", func(t *testing.T) {
		var out bytes.Buffer
		p := NewReader(strings.NewReader("correct horse\ncorrect horse\n"), &out)
		pw, err := NewPassword(ctx, p, "New password")
		require.NoError(t, err)
		assert.Equal(t, "correct horse", pw.String())
		assert.Equal(t, "New password: Confirm new password: ", out.String())
	})

	t.Run("Mismatch", func(t *testing.T) {
		p := NewReader(strings.NewReader("correct horse\nbattery staple\n"), nil)
		_, err := NewPassword(ctx, p, "Password")
		assert.ErrorIs(t, err, ErrPasswordMismatch)
	})

	t.Run("TooShort", func(t *testing.T) {
		p := NewReader(strings.NewReader("short\nshort\n"), nil)
		_, err := NewPassword(ctx, p, "Password")
		assert.ErrorIs(t, err, ErrPasswordTooShort)
	})

	t.Run("NoConfirmation", func(t *testing.T) {
		p := NewReader(strings.NewReader("correct horse\n"), nil)
		_, err := NewPassword(ctx, p, "Password")
		assert.ErrorIs(t, err, ErrAborted)
	})
}
