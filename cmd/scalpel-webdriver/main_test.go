// File: cmd/scalpel-webdriver/main_test.go
package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/scalpel-webdriver/cmd"
	"github.com/xkilldash9x/scalpel-webdriver/internal/observability"
)

// --- Setup Helpers ---

func resetMocks() {
	osWriteFile = os.WriteFile
	osExit = os.Exit
}

// --- Test Cases ---

func TestHandlePanic(t *testing.T) {
	t.Cleanup(resetMocks)

	t.Run("writes the panic log and exits non-zero", func(t *testing.T) {
		var written []byte
		var code int
		osWriteFile = func(name string, data []byte, _ os.FileMode) error {
			assert.Equal(t, panicLogFile, name)
			written = data
			return nil
		}
		osExit = func(c int) { code = c }

		func() {
			defer handlePanic()
			panic("boom")
		}()

		assert.Equal(t, 1, code)
		assert.True(t, strings.HasPrefix(string(written), "panic: boom"))
		assert.Contains(t, string(written), "goroutine", "the stack is included")
	})

	t.Run("log write failure still exits", func(t *testing.T) {
		var code int
		osWriteFile = func(string, []byte, os.FileMode) error { return errors.New("read-only filesystem") }
		osExit = func(c int) { code = c }

		func() {
			defer handlePanic()
			panic("boom")
		}()
		assert.Equal(t, 1, code)
	})

	t.Run("no panic", func(t *testing.T) {
		called := false
		osExit = func(int) { called = true }
		func() {
			defer handlePanic()
		}()
		assert.False(t, called)
	})
}

func TestRunInteractive(t *testing.T) {
	t.Cleanup(observability.ResetForTest)

	var out bytes.Buffer
	in := strings.NewReader("\n--version\nexit\n--version\n")
	require.NoError(t, runInteractive(context.Background(), in, &out))

	assert.Equal(t, 1, strings.Count(out.String(), cmd.Version), "commands after exit are not run")
	assert.Contains(t, out.String(), "scalpel-webdriver > ")
}
