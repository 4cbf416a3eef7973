package protocol

import (
	"errors"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		word    string
		command Command
	}{
		{"info", CmdInfo},
		{"pm", CmdConfigurePins},
		{"vw", CmdVirtualWrite},
		{"vr", CmdVirtualRead},
		{"dw", CmdDigitalWrite},
		{"aw", CmdAnalogWrite},
		{"dr", CmdDigitalRead},
		{"ar", CmdAnalogRead},
	}

	for _, tt := range tests {
		command, err := ParseCommand(tt.word)
		if err != nil {
			t.Fatalf("ParseCommand(%q) failed, details: %v", tt.word, err)
		}
		if command != tt.command {
			t.Errorf("Expected command %d, got %d", tt.command, command)
		}
		// 指令字与枚举互逆
		if command.String() != tt.word {
			t.Errorf("Expected word %q, got %q", tt.word, command.String())
		}
	}
}

func TestParseCommandUnknown(t *testing.T) {
	for _, word := range []string{"", "sw", "VW", "reboot"} {
		_, err := ParseCommand(word)
		if !errors.Is(err, ErrUnknownCommand) {
			t.Errorf("ParseCommand(%q): expected ErrUnknownCommand, got %v", word, err)
		}
	}
}
