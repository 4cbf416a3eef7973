//go:build linux

package watchdog

import (
	"fmt"
	"os"
	"time"

	"github.com/life-stream-dev/life-stream-go-device-agent/internal/logger"
	"golang.org/x/sys/unix"
)

// Hardware 基于/dev/watchdog的硬件看门狗
type Hardware struct {
	file *os.File
}

// OpenHardware 打开看门狗设备并装载超时
func OpenHardware(device string, timeout time.Duration) (*Hardware, error) {
	file, err := os.OpenFile(device, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open watchdog %s: %w", device, err)
	}

	seconds := int(timeout / time.Second)
	if err := unix.IoctlSetPointerInt(int(file.Fd()), unix.WDIOC_SETTIMEOUT, seconds); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("set watchdog timeout: %w", err)
	}

	// 驱动可能把超时取整到自己支持的粒度
	applied, err := unix.IoctlGetInt(int(file.Fd()), unix.WDIOC_GETTIMEOUT)
	if err == nil && applied != seconds {
		logger.WarnF("Watchdog timeout rounded by driver: requested=%ds applied=%ds", seconds, applied)
	}

	return &Hardware{file: file}, nil
}

func (h *Hardware) Feed() {
	if _, err := h.file.Write([]byte("1")); err != nil {
		logger.ErrorF("Fail to feed hardware watchdog, details: %v", err)
	}
}

// Close 写入魔术字符解除装载后关闭设备
func (h *Hardware) Close() error {
	if _, err := h.file.Write([]byte("V")); err != nil {
		logger.WarnF("Fail to disarm hardware watchdog, details: %v", err)
	}
	return h.file.Close()
}
