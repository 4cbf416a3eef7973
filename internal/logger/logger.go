package logger

import (
	"context"
	"fmt"
	"github.com/fatih/color"
	c "github.com/life-stream-dev/life-stream-go-device-agent/internal/config"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	LevelFatal slog.Level = 12
)

// logCore 日志核心，派生Handler之间共享同一个写入队列
type logCore struct {
	queue       chan []byte
	writer      io.Writer
	currentDay  int      // 当前日志日期（day of year）
	currentFile *os.File // 当前日志文件
	dir         string   // 日志目录
	logLevel    slog.Level
	wg          sync.WaitGroup
}

type AsyncHandler struct {
	core  *logCore
	attrs []slog.Attr
	group string
}

func NewAsyncHandler(dir string, logLevel slog.Level) *AsyncHandler {
	core := &logCore{
		queue:    make(chan []byte, 1024),
		logLevel: logLevel,
		dir:      dir,
	}
	_ = core.rotate()
	core.wg.Add(1)
	go core.drain()
	return &AsyncHandler{core: core}
}

func (lc *logCore) drain() {
	defer lc.wg.Done()
	for data := range lc.queue {
		// 跨天时轮转日志文件
		if time.Now().YearDay() != lc.currentDay {
			_ = lc.rotate()
		}
		_, _ = lc.writer.Write(data)
	}
}

// 初始化或轮转日志文件
func (lc *logCore) rotate() error {
	now := time.Now()
	currentDay := now.YearDay()

	if currentDay == lc.currentDay && lc.currentFile != nil {
		return nil
	}

	if lc.currentFile != nil {
		if err := lc.currentFile.Close(); err != nil {
			return fmt.Errorf("关闭日志文件失败: %w", err)
		}
	}

	logPath := fmt.Sprintf("%s/%s.log", lc.dir, now.Format("2006-01-02"))
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return fmt.Errorf("创建日志目录失败: %w", err)
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("创建日志文件失败: %w", err)
	}

	lc.currentFile = f
	lc.currentDay = currentDay
	lc.writer = io.MultiWriter(os.Stdout, lc.currentFile)
	lc.pruneOldLogs()
	return nil
}

func (lc *logCore) pruneOldLogs() {
	files, _ := filepath.Glob(lc.dir + "/*.log")
	now := time.Now()

	for _, f := range files {
		fi, err := os.Stat(f)
		if err != nil {
			continue
		}
		if now.Sub(fi.ModTime()) > 30*24*time.Hour {
			_ = os.Remove(f) // 删除30天前的日志
		}
	}
}

func (lc *logCore) enqueue(p []byte) {
	// 拷贝数据避免竞态
	pb := make([]byte, len(p))
	copy(pb, p)
	lc.queue <- pb
}

func (lc *logCore) close() error {
	close(lc.queue)
	lc.wg.Wait()
	if lc.currentFile != nil {
		_ = lc.currentFile.Sync()
		return lc.currentFile.Close()
	}
	return nil
}

func (h *AsyncHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.core.logLevel
}

func (h *AsyncHandler) Handle(_ context.Context, r slog.Record) error {
	level := r.Level.String()

	switch r.Level {
	case slog.LevelDebug:
		level = color.MagentaString(level)
	case slog.LevelInfo:
		level = color.BlueString(level)
	case slog.LevelWarn:
		level = color.YellowString(level)
	case slog.LevelError:
		level = color.RedString(level)
	case LevelFatal:
		level = color.HiRedString("FATAL")
	}

	// 基础格式：时间 | 级别 | 消息
	line := fmt.Sprintf(
		"%s | %-5s | %s",
		color.GreenString(r.Time.Format("2006-01-02T15:04:05")),
		level,
		color.CyanString(r.Message),
	)

	// 处理固定字段
	for _, attr := range h.attrs {
		line += color.CyanString(fmt.Sprintf(" %s=%v", attr.Key, attr.Value))
	}

	// 处理动态字段
	r.Attrs(func(attr slog.Attr) bool {
		line += color.CyanString(fmt.Sprintf(" %s=%v", attr.Key, attr.Value))
		return true
	})

	line += "\n"

	h.core.enqueue([]byte(line))
	return nil
}

func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	// 合并新旧字段
	newAttrs := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	newAttrs = append(newAttrs, h.attrs...)
	newAttrs = append(newAttrs, attrs...)

	return &AsyncHandler{
		core:  h.core,
		attrs: newAttrs,
		group: h.group,
	}
}

func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	// 记录当前分组名称
	return &AsyncHandler{
		core:  h.core,
		attrs: h.attrs,
		group: name,
	}
}

func (h *AsyncHandler) Close() error {
	return h.core.close()
}

type ShutdownCallback struct {
	handler *AsyncHandler
}

func (lc *ShutdownCallback) Invoke(ctx context.Context) error {
	return lc.handler.Close()
}

func Init() *ShutdownCallback {
	var handler *AsyncHandler
	config, _ := c.GetConfig()
	dir := config.LogDir
	if dir == "" {
		dir = "logs"
	}
	if config.DebugMode {
		handler = NewAsyncHandler(dir, slog.LevelDebug)
	} else {
		handler = NewAsyncHandler(dir, slog.LevelInfo)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logger initialized")
	return &ShutdownCallback{handler: handler}
}

func Debug(msg string, v ...interface{}) {
	slog.Debug(msg, v...)
}

func DebugF(msg string, v ...interface{}) {
	slog.Debug(fmt.Sprintf(msg, v...))
}

func Info(msg string, v ...interface{}) {
	slog.Info(msg, v...)
}

func InfoF(msg string, v ...interface{}) {
	slog.Info(fmt.Sprintf(msg, v...))
}

func Warn(msg string, v ...interface{}) {
	slog.Warn(msg, v...)
}

func WarnF(msg string, v ...interface{}) {
	slog.Warn(fmt.Sprintf(msg, v...))
}

func Error(msg string, v ...interface{}) {
	slog.Error(msg, v...)
}

func ErrorF(msg string, v ...interface{}) {
	slog.Error(fmt.Sprintf(msg, v...))
}

func Fatal(msg string, v ...interface{}) {
	slog.Log(context.Background(), LevelFatal, msg, v...)
}

func FatalF(msg string, v ...interface{}) {
	slog.Log(context.Background(), LevelFatal, fmt.Sprintf(msg, v...))
}
