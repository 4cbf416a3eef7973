//go:build !linux

package watchdog

import (
	"errors"
	"time"
)

// Hardware 仅在Linux上可用
type Hardware struct{}

func OpenHardware(device string, timeout time.Duration) (*Hardware, error) {
	return nil, errors.New("hardware watchdog requires linux")
}

func (h *Hardware) Feed() {}

func (h *Hardware) Close() error {
	return nil
}
