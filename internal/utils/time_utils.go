package utils

import (
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/logger"
	"strconv"
	"strings"
	"time"
)

// 时长单位按后缀从长到短匹配，避免ms被s先截断
var timeUnits = []struct {
	suffix string
	unit   time.Duration
}{
	{"ms", time.Millisecond},
	{"s", time.Second},
	{"m", time.Minute},
	{"h", time.Hour},
	{"d", 24 * time.Hour},
}

// ParseStringTime 解析形如10s、5m、100ms的时长字符串，解析失败返回0
func ParseStringTime(timeString string) time.Duration {
	timeString = strings.ToLower(strings.TrimSpace(timeString))
	for _, u := range timeUnits {
		cutString, found := strings.CutSuffix(timeString, u.suffix)
		if !found {
			continue
		}
		number, err := strconv.Atoi(cutString)
		if err != nil {
			logger.ErrorF("Error parsing time string: %s", err.Error())
			return 0
		}
		return time.Duration(number) * u.unit
	}
	logger.ErrorF("invalid time format: %s", timeString)
	return 0
}
