package notify

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsoleWritesOneLinePerMessage(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Notify(Warning, "Storage full")
	c.Notify(Success, "Data synced")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Storage full")
	assert.Contains(t, lines[1], "Data synced")
}

func TestFuncAdapter(t *testing.T) {
	var got []Level
	var n Notifier = Func(func(l Level, _ string) { got = append(got, l) })

	n.Notify(Info, "a")
	n.Notify(Error, "b")
	assert.Equal(t, []Level{Info, Error}, got)
	assert.Equal(t, "error", Error.String())
}
