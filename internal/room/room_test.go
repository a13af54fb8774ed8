package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoom_ColorForSequence(t *testing.T) {
	rm := newRoom("math101", time.Now())

	seen := map[string]bool{}
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		c := rm.colorFor(id)
		assert.Regexp(t, `^#[0-9a-f]{6}$`, c)
		assert.False(t, seen[c], "color %s handed out twice", c)
		seen[c] = true
	}
	assert.Equal(t, 8, rm.colorSeq)

	assert.Equal(t, rm.colorFor("a"), rm.colorFor("a"))
	assert.Equal(t, 8, rm.colorSeq, "known identities do not advance the sequence")
}

func TestRoom_ColorsArePerRoom(t *testing.T) {
	r1 := newRoom("r1", time.Now())
	r2 := newRoom("r2", time.Now())

	first := r1.colorFor("x")
	r1.colorFor("y")

	assert.Equal(t, first, r2.colorFor("y"), "each room starts its own sequence")
}
