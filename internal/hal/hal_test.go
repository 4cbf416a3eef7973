package hal

import (
	"errors"
	"testing"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		word string
		mode Mode
	}{
		{"in", ModeInput},
		{"out", ModeOutput},
		{"pu", ModePullUp},
		{"pd", ModePullDown},
	}

	for _, tt := range tests {
		mode, err := ParseMode(tt.word)
		if err != nil {
			t.Errorf("ParseMode(%q) 失败: %v", tt.word, err)
			continue
		}
		if mode != tt.mode {
			t.Errorf("ParseMode(%q) 期望=%v 实际=%v", tt.word, tt.mode, mode)
		}
		if mode.String() != tt.word {
			t.Errorf("String() 期望=%q 实际=%q", tt.word, mode.String())
		}
	}
}

func TestParseModeUnknown(t *testing.T) {
	for _, word := range []string{"", "IN", "updown", "analog"} {
		if _, err := ParseMode(word); !errors.Is(err, ErrUnknownMode) {
			t.Errorf("ParseMode(%q) 期望=ErrUnknownMode 实际=%v", word, err)
		}
	}
}
