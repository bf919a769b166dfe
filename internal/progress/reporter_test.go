package progress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCIReporter(t *testing.T) {
	var buf bytes.Buffer
	fn := Func(&CIReporter{Out: &buf})
	fn(1, 2, "Core")
	fn(2, 2, "Web")

	assert.Equal(t, "Syncing 2 teams\n[1/2] Core\n[2/2] Web\n", buf.String())
}

func TestTerminalReporter(t *testing.T) {
	var buf bytes.Buffer
	r := &TerminalReporter{Out: &buf}
	fn := Func(r)
	fn(1, 3, "Core")
	r.Finish()

	assert.NotNil(t, r.bar)
	assert.NotEmpty(t, buf.String())
}

func TestFinishBeforeStart(t *testing.T) {
	r := &TerminalReporter{Out: &bytes.Buffer{}}
	r.Finish()
	r.Update(1, "noop")
}
