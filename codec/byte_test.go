package codec

import (
	"testing"

	"gotest.tools/v3/assert"
)

type pingPong uint8

const (
	ping pingPong = 1
	pong pingPong = 2
)

func TestByte(test *testing.T) {
	c := &Byte[pingPong]{
		Valid: func(v pingPong) bool { return v == ping || v == pong },
	}

	b, err := c.Encode(pong)
	assert.NilError(test, err)
	assert.DeepEqual(test, b, []byte{2})

	vs := decodeAll[pingPong](c, []byte{1, 7, 2}, []byte{0, 1})
	assert.DeepEqual(test, vs, []pingPong{ping, pong, ping})

	all := &Byte[uint8]{}
	assert.DeepEqual(test, decodeAll[uint8](all, []byte{0, 255}), []uint8{0, 255})
}
