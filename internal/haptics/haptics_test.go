package haptics

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBell(t *testing.T) {
	var buf bytes.Buffer
	var b Buzzer = NewBell(&buf)

	assert.NoError(t, b.Buzz(20*time.Millisecond))
	assert.NoError(t, b.Buzz(20*time.Millisecond))
	assert.Equal(t, "\a\a", buf.String())
}

func TestNoop(t *testing.T) {
	var b Buzzer = Noop{}
	assert.NoError(t, b.Buzz(time.Second))
}
