package chatclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUTF8Decoder(t *testing.T) {
	euro := []byte("€")  // 3 bytes
	emoji := []byte("😀") // 4 bytes

	tests := []struct {
		name   string
		chunks [][]byte
		want   []string
		flush  string
	}{
		{name: "ascii", chunks: [][]byte{[]byte("ab"), []byte("c")}, want: []string{"ab", "c"}},
		{name: "split three-byte rune", chunks: [][]byte{append([]byte("a"), euro[:1]...), euro[1:]}, want: []string{"a", "€"}},
		{name: "rune split over three reads", chunks: [][]byte{emoji[:1], emoji[1:3], emoji[3:]}, want: []string{"", "", "😀"}},
		{name: "dangling bytes at end", chunks: [][]byte{append([]byte("x"), emoji[:2]...)}, want: []string{"x"}, flush: "�"},
		{name: "invalid byte replaced", chunks: [][]byte{{'a', 0xff, 'b'}}, want: []string{"a�b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d utf8Decoder
			var got []string
			for _, c := range tt.chunks {
				got = append(got, d.Decode(c))
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.flush, d.Flush())
		})
	}
}
