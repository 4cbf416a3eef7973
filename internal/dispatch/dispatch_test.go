package dispatch

import (
	"errors"
	"testing"

	"github.com/life-stream-dev/life-stream-go-device-agent/internal/hal"
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/pin"
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/protocol"
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/store"
)

// fakeHAL 记录硬件调用并返回预置读数
type fakeHAL struct {
	configured map[int]hal.Mode
	digital    map[int]int
	analog     map[int]int
	digitalIn  map[int]int
	analogIn   map[int]int
}

func newFakeHAL() *fakeHAL {
	return &fakeHAL{
		configured: make(map[int]hal.Mode),
		digital:    make(map[int]int),
		analog:     make(map[int]int),
		digitalIn:  make(map[int]int),
		analogIn:   make(map[int]int),
	}
}

func (f *fakeHAL) ConfigurePin(pinNum int, mode hal.Mode) error {
	f.configured[pinNum] = mode
	return nil
}

func (f *fakeHAL) DigitalWrite(pinNum int, value int) error {
	f.digital[pinNum] = value
	return nil
}

func (f *fakeHAL) DigitalRead(pinNum int) (int, error) {
	return f.digitalIn[pinNum], nil
}

func (f *fakeHAL) AnalogWrite(pinNum int, value int) error {
	f.analog[pinNum] = value
	return nil
}

func (f *fakeHAL) AnalogRead(pinNum int) (int, error) {
	return f.analogIn[pinNum], nil
}

func newTestDispatcher() (*Dispatcher, *fakeHAL, *pin.Registry, *store.MemoryStore) {
	hardware := newFakeHAL()
	registry := pin.NewRegistry()
	shadow := store.NewMemoryStore()
	d := NewDispatcher(registry, hardware, shadow, protocol.NewMessageIDSource())
	return d, hardware, registry, shadow
}

func hwHeader(id uint16) protocol.Header {
	return protocol.Header{Type: protocol.HW, ID: id}
}

// decodeReply 解码回发报文，返回头部和字段序列
func decodeReply(t *testing.T, frame []byte) (protocol.Header, []string) {
	t.Helper()
	if len(frame) < protocol.HeaderLen {
		t.Fatalf("回发报文过短: %d字节", len(frame))
	}
	header, err := protocol.ParseHeader(frame[:protocol.HeaderLen])
	if err != nil {
		t.Fatalf("回发报文头解析失败: %v", err)
	}
	return header, protocol.SplitBody(frame[protocol.HeaderLen:])
}

func TestHandleEmptyBody(t *testing.T) {
	d, _, _, _ := newTestDispatcher()
	if _, err := d.Handle(hwHeader(1), nil); err == nil {
		t.Error("空报文体应当判定为协议违例")
	}
}

func TestHandleUnknownCommand(t *testing.T) {
	d, _, _, _ := newTestDispatcher()
	_, err := d.Handle(hwHeader(1), []string{"xx", "1"})
	if !errors.Is(err, protocol.ErrUnknownCommand) {
		t.Errorf("未知命令 期望=ErrUnknownCommand 实际=%v", err)
	}
}

func TestHandleInfoNoOp(t *testing.T) {
	d, _, _, _ := newTestDispatcher()
	replies, err := d.Handle(hwHeader(1), []string{"info"})
	if err != nil || len(replies) != 0 {
		t.Errorf("info命令 期望无动作 实际 replies=%v err=%v", replies, err)
	}
}

func TestConfigurePins(t *testing.T) {
	d, hardware, _, _ := newTestDispatcher()
	if _, err := d.Handle(hwHeader(1), []string{"pm", "1", "out", "2", "in"}); err != nil {
		t.Fatalf("pm命令处理失败: %v", err)
	}
	if !d.pinsConfigured {
		t.Error("pm命令后应当标记引脚已配置")
	}
	if hardware.configured[1] != hal.ModeOutput {
		t.Errorf("引脚1模式 期望=out 实际=%v", hardware.configured[1])
	}
	if hardware.configured[2] != hal.ModeInput {
		t.Errorf("引脚2模式 期望=in 实际=%v", hardware.configured[2])
	}
}

func TestConfigurePinsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		params []string
	}{
		{"奇数个字段", []string{"pm", "1", "out", "2"}},
		{"零个字段", []string{"pm"}},
		{"未知模式", []string{"pm", "1", "updown"}},
		{"非法引脚号", []string{"pm", "abc", "out"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, hardware, _, _ := newTestDispatcher()
			if _, err := d.Handle(hwHeader(1), tt.params); err == nil {
				t.Error("应当判定为协议违例")
			}
			if d.pinsConfigured {
				t.Error("违例的pm命令不应标记引脚已配置")
			}
			if len(hardware.configured) != 0 {
				t.Errorf("违例的pm命令不应触达硬件 实际=%v", hardware.configured)
			}
		})
	}
}

func TestHardwareCommandsGatedBeforeConfigure(t *testing.T) {
	d, hardware, _, _ := newTestDispatcher()

	replies, err := d.Handle(hwHeader(1), []string{"dw", "5", "1"})
	if err != nil || len(replies) != 0 {
		t.Errorf("配置前的dw 期望静默忽略 实际 replies=%v err=%v", replies, err)
	}
	if len(hardware.digital) != 0 {
		t.Error("配置前的dw不应触达硬件")
	}

	replies, err = d.Handle(hwHeader(2), []string{"dr", "5"})
	if err != nil || len(replies) != 0 {
		t.Errorf("配置前的dr 期望静默忽略 实际 replies=%v err=%v", replies, err)
	}
}

func TestDigitalWrite(t *testing.T) {
	d, hardware, _, _ := newTestDispatcher()
	if _, err := d.Handle(hwHeader(1), []string{"pm", "5", "out"}); err != nil {
		t.Fatal(err)
	}

	if _, err := d.Handle(hwHeader(2), []string{"dw", "5", "1"}); err != nil {
		t.Fatalf("dw命令处理失败: %v", err)
	}
	if hardware.digital[5] != 1 {
		t.Errorf("引脚5数字输出 期望=1 实际=%d", hardware.digital[5])
	}

	if _, err := d.Handle(hwHeader(3), []string{"dw", "5", "abc"}); err == nil {
		t.Error("非法取值应当判定为协议违例")
	}
}

func TestDigitalReadReply(t *testing.T) {
	d, hardware, _, _ := newTestDispatcher()
	hardware.digitalIn[5] = 1
	if _, err := d.Handle(hwHeader(1), []string{"pm", "5", "in"}); err != nil {
		t.Fatal(err)
	}

	replies, err := d.Handle(hwHeader(2), []string{"dr", "5"})
	if err != nil {
		t.Fatalf("dr命令处理失败: %v", err)
	}
	if len(replies) != 1 {
		t.Fatalf("dr回发报文数 期望=1 实际=%d", len(replies))
	}

	header, fields := decodeReply(t, replies[0])
	if header.Type != protocol.HW {
		t.Errorf("回发报文类型 期望=HW 实际=%v", header.Type)
	}
	if header.ID == 0 {
		t.Error("回发报文id不应为0")
	}
	expected := []string{"dw", "5", "1"}
	if len(fields) != len(expected) {
		t.Fatalf("回发字段数 期望=%d 实际=%d", len(expected), len(fields))
	}
	for i := range expected {
		if fields[i] != expected[i] {
			t.Errorf("回发字段%d 期望=%q 实际=%q", i, expected[i], fields[i])
		}
	}
}

func TestAnalogReadReply(t *testing.T) {
	d, hardware, _, _ := newTestDispatcher()
	hardware.analogIn[3] = 512
	if _, err := d.Handle(hwHeader(1), []string{"pm", "3", "in"}); err != nil {
		t.Fatal(err)
	}

	replies, err := d.Handle(hwHeader(2), []string{"ar", "3"})
	if err != nil || len(replies) != 1 {
		t.Fatalf("ar命令 期望1条回发 实际 replies=%d err=%v", len(replies), err)
	}

	_, fields := decodeReply(t, replies[0])
	if fields[0] != "aw" || fields[1] != "3" || fields[2] != "512" {
		t.Errorf("ar回发 期望=[aw 3 512] 实际=%v", fields)
	}
}

func TestVirtualWriteRouted(t *testing.T) {
	d, _, registry, _ := newTestDispatcher()
	var got []string
	h := pin.Funcs{WriteFunc: func(value string) error {
		got = append(got, value)
		return nil
	}}
	if err := registry.Register(2, h); err != nil {
		t.Fatal(err)
	}

	if _, err := d.Handle(hwHeader(1), []string{"vw", "2", "123"}); err != nil {
		t.Fatalf("vw命令处理失败: %v", err)
	}
	if len(got) != 1 || got[0] != "123" {
		t.Errorf("写处理器收到 期望=[123] 实际=%v", got)
	}

	// 多值写按取值逐个调用
	got = nil
	if _, err := d.Handle(hwHeader(2), []string{"vw", "2", "10", "20"}); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "10" || got[1] != "20" {
		t.Errorf("多值写 期望=[10 20] 实际=%v", got)
	}
}

func TestVirtualWriteUnregistered(t *testing.T) {
	d, _, _, _ := newTestDispatcher()
	if _, err := d.Handle(hwHeader(1), []string{"vw", "2", "123"}); err != nil {
		t.Errorf("未注册引脚的vw 期望丢弃 实际=%v", err)
	}
}

func TestVirtualWriteBadPin(t *testing.T) {
	d, _, _, _ := newTestDispatcher()

	// 越界引脚号丢弃
	if _, err := d.Handle(hwHeader(1), []string{"vw", "40", "1"}); err != nil {
		t.Errorf("越界引脚的vw 期望丢弃 实际=%v", err)
	}

	// 非数字引脚号是协议违例
	if _, err := d.Handle(hwHeader(2), []string{"vw", "abc", "1"}); err == nil {
		t.Error("非数字引脚的vw应当判定为协议违例")
	}

	// 缺少引脚号是协议违例
	if _, err := d.Handle(hwHeader(3), []string{"vw"}); err == nil {
		t.Error("缺少引脚号的vw应当判定为协议违例")
	}
}

func TestVirtualReadReply(t *testing.T) {
	d, _, registry, _ := newTestDispatcher()
	h := pin.Funcs{ReadFunc: func() ([]string, error) {
		return []string{"7"}, nil
	}}
	if err := registry.Register(2, h); err != nil {
		t.Fatal(err)
	}

	replies, err := d.Handle(hwHeader(1), []string{"vr", "2"})
	if err != nil || len(replies) != 1 {
		t.Fatalf("vr命令 期望1条回发 实际 replies=%d err=%v", len(replies), err)
	}

	header, fields := decodeReply(t, replies[0])
	if header.Type != protocol.HW {
		t.Errorf("回发报文类型 期望=HW 实际=%v", header.Type)
	}
	if fields[0] != "vw" || fields[1] != "2" || fields[2] != "7" {
		t.Errorf("vr回发 期望=[vw 2 7] 实际=%v", fields)
	}
}

func TestVirtualReadNoHandler(t *testing.T) {
	d, _, registry, _ := newTestDispatcher()
	if err := registry.Register(2, pin.Funcs{}); err != nil {
		t.Fatal(err)
	}

	replies, err := d.Handle(hwHeader(1), []string{"vr", "2"})
	if err != nil || len(replies) != 0 {
		t.Errorf("无读处理器的vr 期望丢弃 实际 replies=%v err=%v", replies, err)
	}

	// 未注册引脚同样丢弃
	replies, err = d.Handle(hwHeader(2), []string{"vr", "9"})
	if err != nil || len(replies) != 0 {
		t.Errorf("未注册引脚的vr 期望丢弃 实际 replies=%v err=%v", replies, err)
	}
}

func TestShadowJournal(t *testing.T) {
	d, _, registry, shadow := newTestDispatcher()
	if err := registry.Register(2, pin.Funcs{
		ReadFunc:  func() ([]string, error) { return []string{"42"}, nil },
		WriteFunc: func(value string) error { return nil },
	}); err != nil {
		t.Fatal(err)
	}

	// 平台下发的vw落入影子存储
	if _, err := d.Handle(hwHeader(1), []string{"vw", "2", "123"}); err != nil {
		t.Fatal(err)
	}
	state, err := shadow.Get(2)
	if err != nil {
		t.Fatalf("影子状态读取失败: %v", err)
	}
	if state.Source != store.SourcePlatform || len(state.Values) != 1 || state.Values[0] != "123" {
		t.Errorf("影子状态 期望=platform/[123] 实际=%s/%v", state.Source, state.Values)
	}

	// vr回发覆盖为设备上报
	if _, err := d.Handle(hwHeader(2), []string{"vr", "2"}); err != nil {
		t.Fatal(err)
	}
	state, err = shadow.Get(2)
	if err != nil {
		t.Fatal(err)
	}
	if state.Source != store.SourceDevice || state.Values[0] != "42" {
		t.Errorf("影子状态 期望=device/[42] 实际=%s/%v", state.Source, state.Values)
	}
}

func TestResetClearsPinConfiguration(t *testing.T) {
	d, _, _, _ := newTestDispatcher()
	if _, err := d.Handle(hwHeader(1), []string{"pm", "1", "out"}); err != nil {
		t.Fatal(err)
	}
	d.Reset()
	if d.pinsConfigured {
		t.Error("Reset后应当重新等待引脚配置")
	}
}
