package tts

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingRenderer struct{ calls int }

func (f *failingRenderer) Speak(ctx context.Context, text string) error {
	f.calls++
	return errors.New("speaker unplugged")
}

func TestConsole_Speak(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, "Bot: ")

	require.NoError(t, c.Speak(context.Background(), "  سلام  "))
	require.NoError(t, c.Speak(context.Background(), "   "))

	assert.Equal(t, "Bot: سلام\n", buf.String())
}

func TestTee_TriesAll(t *testing.T) {
	var buf bytes.Buffer
	failing := &failingRenderer{}

	err := Tee{failing, NewConsole(&buf, "")}.Speak(context.Background(), "hello")

	assert.EqualError(t, err, "speaker unplugged")
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, "hello\n", buf.String())
}
