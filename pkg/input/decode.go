package input

import "strings"

var escapes = map[string]string{
	"[A": "up", "[B": "down", "[C": "right", "[D": "left",
	"OA": "up", "OB": "down", "OC": "right", "OD": "left",
	"OP": "f1", "OQ": "f2", "OR": "f3", "OS": "f4",
	"[15~": "f5", "[17~": "f6", "[18~": "f7", "[19~": "f8",
	"[20~": "f9", "[21~": "f10",
}

// Decode splits raw terminal bytes into key names.
// A lone ESC at the end of p is the escape key.
func Decode(p []byte, fn func(key string)) {
	for i := 0; i < len(p); i++ {
		c := p[i]
		switch {
		case c == 0x1b:
			if i+1 >= len(p) || (p[i+1] != '[' && p[i+1] != 'O') {
				fn("esc")
				continue
			}
			j := i + 2
			for j < len(p) && (p[j] < 0x40 || p[j] > 0x7e) {
				j++
			}
			if j >= len(p) {
				return
			}
			if k, ok := escapes[string(p[i+1:j+1])]; ok {
				fn(k)
			}
			i = j
		case c == '\r' || c == '\n':
			fn("enter")
		case c == '\t':
			fn("tab")
		case c == ' ':
			fn("space")
		case c == 0x7f || c == 0x08:
			fn("backspace")
		case c == 0x03:
			fn("ctrl+c")
		case c >= 0x21 && c < 0x7f:
			fn(strings.ToLower(string(rune(c))))
		}
	}
}
