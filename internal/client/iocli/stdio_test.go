package iocli

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Проверяем что NewStdio возвращает валидный объект
func TestNewStdio(t *testing.T) {
	stdio := NewStdio(strings.NewReader(""), io.Discard)
	assert.NotNil(t, stdio)
}

func TestPrintlnAndPrintf(t *testing.T) {
	var out bytes.Buffer
	stdio := NewStdio(strings.NewReader(""), &out)

	stdio.Println("hello", "world")
	stdio.Printf("test %d %s", 1, "abc")
	_, err := stdio.Write([]byte("!"))
	require.NoError(t, err)

	assert.Equal(t, "hello world\ntest 1 abc!", out.String())
}

// Тест ReadInput: несколько строк из одного потока
func TestReadInput(t *testing.T) {
	var out bytes.Buffer
	stdio := NewStdio(strings.NewReader("  user input \nsecond\nlast"), &out)

	tests := []struct {
		name string
		want string
	}{
		{name: "trims spaces", want: "user input"},
		{name: "keeps buffered line", want: "second"},
		{name: "line without newline", want: "last"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := stdio.ReadInput("Prompt: ")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := stdio.ReadInput("Prompt: ")
	assert.ErrorIs(t, err, io.EOF)
	assert.Contains(t, out.String(), "Prompt: ")
}

// ReadPassword без терминала читает строку из потока
func TestReadPassword_NotTerminal(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)

	go func() {
		_, _ = w.Write([]byte("secret1\n"))
		_ = w.Close()
	}()
	defer func() { _ = r.Close() }()

	var out bytes.Buffer
	stdio := NewStdio(r, &out)

	password, err := stdio.ReadPassword("Password: ")
	require.NoError(t, err)
	assert.Equal(t, "secret1", password)
	assert.Equal(t, "Password: ", out.String())
}
