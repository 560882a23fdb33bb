package codec

import (
	"testing"

	"gotest.tools/v3/assert"
)

type decoder[T any] interface {
	Decode(p []byte) (T, bool)
}

// decodeAll feeds every chunk and drains the decoder after each one.
func decodeAll[T any](d decoder[T], chunks ...[]byte) []T {
	var vs []T
	for _, c := range chunks {
		p := c
		for {
			v, ok := d.Decode(p)
			if !ok {
				break
			}
			p = nil
			vs = append(vs, v)
		}
	}
	return vs
}

// splits returns b cut at every possible single point, plus one chunk per
// byte.
func splits(b []byte) [][][]byte {
	var ss [][][]byte
	for i := 0; i <= len(b); i++ {
		ss = append(ss, [][]byte{b[:i:i], b[i:]})
	}
	var bytewise [][]byte
	for i := range b {
		bytewise = append(bytewise, b[i:i+1])
	}
	return append(ss, bytewise)
}

func TestPartialFrames(test *testing.T) {
	lines := []byte("one\r\ntwo\nthree\n")
	for _, s := range splits(lines) {
		assert.DeepEqual(test, decodeAll[string](Lines(), s...), []string{"one", "two", "three"})
	}

	// over-long lines are dropped however the stream is split.
	long := []byte("abcdefg\nxy\nabcd\r\n")
	for _, s := range splits(long) {
		c := Lines()
		c.MaxLength = 4
		assert.DeepEqual(test, decodeAll[string](c, s...), []string{"xy"})
	}
	crlf := []byte("abcd\r\nabcde\r\nxy\r\n")
	for _, s := range splits(crlf) {
		c := NewDelimited("\r\n")
		c.MaxLength = 4
		assert.DeepEqual(test, decodeAll[string](c, s...), []string{"abcd", "xy"})
	}

	var frames []byte
	lp := &LengthPrefixed{}
	for _, m := range []string{"a", "bc", "def"} {
		b, err := lp.Encode([]byte(m))
		assert.NilError(test, err)
		frames = append(frames, b...)
	}
	for _, s := range splits(frames) {
		vs := decodeAll[[]byte](&LengthPrefixed{}, s...)
		assert.Equal(test, len(vs), 3)
		assert.Equal(test, string(vs[0])+string(vs[1])+string(vs[2]), "abcdef")
	}
}

func TestDecodeEmpty(test *testing.T) {
	d := Lines()
	_, ok := d.Decode(nil)
	assert.Assert(test, !ok)
	_, ok = d.Decode([]byte{})
	assert.Assert(test, !ok)
	assert.Equal(test, d.Buffered(), 0)
}
