package chatclient

import (
	"strings"
	"unicode/utf8"
)

// utf8Decoder holds back an incomplete trailing sequence so a multi-byte
// character split across reads is decoded once, whole.
type utf8Decoder struct {
	pending []byte
}

func (d *utf8Decoder) Decode(p []byte) string {
	buf := append(d.pending, p...)
	d.pending = nil

	cut := len(buf)
	for i := len(buf) - 1; i >= 0 && i >= len(buf)-utf8.UTFMax; i-- {
		if utf8.RuneStart(buf[i]) {
			if !utf8.FullRune(buf[i:]) {
				cut = i
			}
			break
		}
	}

	if cut < len(buf) {
		d.pending = append([]byte(nil), buf[cut:]...)
	}
	return strings.ToValidUTF8(string(buf[:cut]), "�")
}

// Flush returns whatever is still held back, with invalid bytes replaced.
func (d *utf8Decoder) Flush() string {
	if len(d.pending) == 0 {
		return ""
	}
	s := strings.ToValidUTF8(string(d.pending), "�")
	d.pending = nil
	return s
}
