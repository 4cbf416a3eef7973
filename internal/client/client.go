package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	c "github.com/life-stream-dev/life-stream-go-device-agent/internal/config"
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/connection"
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/dispatch"
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/hal"
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/logger"
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/metrics"
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/pin"
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/protocol"
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/store"
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/transport"
	"github.com/life-stream-dev/life-stream-go-device-agent/internal/watchdog"
)

// 认证等待与重连退避，测试中可替换
var (
	authTimeout    = protocol.MaxSocketTimeout
	reconnectDelay = protocol.ReconnectDelay
)

// Options 可替换的外部依赖，零值使用缺省实现
type Options struct {
	Dialer   transport.Dialer
	Hardware hal.HAL
	Shadow   store.ShadowStore
	Watchdog watchdog.Watchdog
}

// Client 设备端客户端
//
// Run驱动单协程主循环，公开操作可从任意协程调用；
// 引脚处理器与用户任务必须在Run之前注册
type Client struct {
	config   c.Config
	dialer   transport.Dialer
	registry *pin.Registry
	wd       watchdog.Watchdog
	shadow   store.ShadowStore

	ids        *protocol.MessageIDSource
	limiter    *connection.Limiter
	dispatcher *dispatch.Dispatcher
	hb         heartbeatMonitor
	tasks      taskScheduler

	mu          sync.Mutex
	state       State
	conn        *connection.Conn
	sender      *connection.Sender
	wantConnect bool
	stopping    bool

	onConnect func()

	// 以下字段仅由Run循环访问
	pending  *protocol.Header
	idleMark time.Time
	attempts int
}

// NewClient 创建客户端，校验凭证并装配缺省依赖
func NewClient(conf c.Config, opts Options) (*Client, error) {
	if conf.Device.Token == "" {
		return nil, errors.New("device token must not be empty")
	}

	dialer := opts.Dialer
	if dialer == nil {
		d, err := transport.NewDialer(conf)
		if err != nil {
			return nil, err
		}
		dialer = d
	}
	hardware := opts.Hardware
	if hardware == nil {
		hardware = hal.NewNoop()
	}
	shadow := opts.Shadow
	if shadow == nil {
		shadow = store.NewMemoryStore()
	}
	wd := opts.Watchdog
	if wd == nil {
		wd = watchdog.NewNop()
	}

	registry := pin.NewRegistry()
	ids := protocol.NewMessageIDSource()
	return &Client{
		config:      conf,
		dialer:      dialer,
		registry:    registry,
		wd:          wd,
		shadow:      shadow,
		ids:         ids,
		limiter:     connection.NewLimiter(),
		dispatcher:  dispatch.NewDispatcher(registry, hardware, shadow, ids),
		wantConnect: true,
	}, nil
}

// Shadow 返回影子状态存储，应用侧可读取最近的引脚取值
func (client *Client) Shadow() store.ShadowStore {
	return client.shadow
}

// RegisterVirtualPin 绑定虚拟引脚处理器
func (client *Client) RegisterVirtualPin(pinNum int, h pin.Handler) error {
	return client.registry.Register(pinNum, h)
}

// OnConnect 注册认证成功后的回调，在主循环内同步执行
func (client *Client) OnConnect(fn func()) {
	client.onConnect = fn
}

// SetUserTask 注册周期性用户任务
func (client *Client) SetUserTask(task func(), period time.Duration) error {
	return client.tasks.Set(task, period)
}

// State 返回当前连接状态
func (client *Client) State() State {
	client.mu.Lock()
	defer client.mu.Unlock()
	return client.state
}

// Connect 允许主循环建立连接，NewClient后默认已允许
func (client *Client) Connect() {
	client.mu.Lock()
	client.wantConnect = true
	client.mu.Unlock()
}

// Disconnect 要求主循环关闭连接并停止重连，任务调度照常运行
func (client *Client) Disconnect() {
	client.mu.Lock()
	client.wantConnect = false
	client.mu.Unlock()
}

// Stop 要求Run返回
func (client *Client) Stop() {
	client.mu.Lock()
	client.stopping = true
	client.mu.Unlock()
}

// Run 驱动主循环直到Stop被调用或ctx被取消
//
// 每轮循环依次推进用户任务、墙钟秒例程（配额、喂狗、心跳），
// 然后按连接状态接收处理报文或尝试建连，无事可做时在绝对
// 时间栅格上空转
func (client *Client) Run(ctx context.Context) error {
	logger.InfoF("Device agent running, server=%s transport=%s",
		client.serverAddr(), client.config.Server.Transport)

	now := time.Now()
	client.idleMark = now
	client.tasks.Start(now)

	for {
		if client.stopRequested(ctx) {
			client.teardown()
			logger.Info("Device agent stopped")
			return ctx.Err()
		}

		now := time.Now()
		client.tasks.Tick(now)
		client.secondTick(now)

		if !client.connectWanted() {
			if client.State() != StateDisconnected {
				client.closeConnection("disconnection requested by the user")
			} else {
				client.idle(protocol.TaskPeriodResolution)
			}
			continue
		}

		switch client.State() {
		case StateAuthenticated:
			client.pump()
		case StateDisconnected:
			client.establish(ctx)
		default:
			client.idle(protocol.IdleTime)
		}
	}
}

// establish 建立传输连接并完成认证握手
func (client *Client) establish(ctx context.Context) {
	addr := client.serverAddr()
	if client.attempts > 0 {
		metrics.Reconnect()
	}
	client.attempts++
	client.applyEvent(EventDialStart)
	client.wd.Feed()
	logger.InfoF("Connecting to %s", addr)

	dialCtx, cancel := context.WithTimeout(ctx, protocol.MaxSocketTimeout)
	raw, err := client.dialer.Dial(dialCtx, addr)
	cancel()
	if err != nil {
		logger.ErrorF("Fail to connect %s, details: %v", addr, err)
		client.applyEvent(EventLinkDown)
		client.backoff()
		return
	}
	client.wd.Feed()

	conn := connection.NewConn(raw)
	client.limiter.Reset()
	sender := connection.NewSender(conn, client.limiter)
	client.setLink(conn, sender)
	client.applyEvent(EventDialDone)
	logger.InfoF("[%s] Connection established", conn.ConnID())

	if err := client.authenticate(conn, sender); err != nil {
		metrics.AuthFailure()
		client.applyEvent(EventAuthFail)
		client.closeConnection(err.Error())
		return
	}

	client.dispatcher.Reset()
	client.pending = nil
	client.hb.Reset(time.Now())
	client.applyEvent(EventAuthOK)
	client.wd.Feed()
	logger.InfoF("[%s] Authenticated", conn.ConnID())

	if err := client.announce(sender); err != nil {
		logger.ErrorF("[%s] Fail to announce device info, details: %v", conn.ConnID(), err)
		client.closeConnection("announce failed")
		return
	}

	if client.onConnect != nil {
		client.onConnect()
	}
}

// authenticate 发送LOGIN并等待平台判定
//
// 这是唯一一处把"没有数据"当作错误的接收：等待窗口内
// 无响应判定为认证超时
func (client *Client) authenticate(conn *connection.Conn, sender *connection.Sender) error {
	frame, err := protocol.EncodeMessage(protocol.LOGIN, client.ids.NextID(), client.config.Device.Token)
	if err != nil {
		return err
	}
	if err := sender.Send(frame, true); err != nil {
		return fmt.Errorf("fail to send credentials: %w", err)
	}
	metrics.FrameSent(protocol.LOGIN.String())

	deadline := time.Now().Add(authTimeout)
	for {
		remain := time.Until(deadline)
		if remain <= 0 {
			return errors.New("authentication timed out")
		}
		data, err := conn.Receive(protocol.HeaderLen, remain)
		if err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
		if data == nil {
			continue
		}
		header, err := protocol.ParseHeader(data)
		if err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
		metrics.FrameReceived(header.Type.String())
		if header.ID == 0 || header.Length != protocol.StatusSuccess {
			return fmt.Errorf("authentication failed, id=%d status=%d", header.ID, header.Length)
		}
		return nil
	}
}

// announce 通告设备能力：固件版本、心跳周期、接收缓冲
func (client *Client) announce(sender *connection.Sender) error {
	fields := []string{
		"ver", client.config.Device.Firmware,
		"h-beat", strconv.Itoa(int(protocol.HeartbeatPeriod / time.Second)),
		"buff-in", "1024",
		"dev", "go",
	}
	if client.config.Device.Name != "" {
		fields = append(fields, "name", client.config.Device.Name)
	}
	frame, err := protocol.EncodeMessage(protocol.HWINFO, client.ids.NextID(), fields...)
	if err != nil {
		return err
	}
	if err := sender.Send(frame, false); err != nil {
		return err
	}
	metrics.FrameSent(protocol.HWINFO.String())
	return nil
}

// pump 接收并处理一条报文，无数据时空转一轮
//
// 报文头到齐而报文体未到齐时保留头部，下一轮从报文体继续，
// 慢速到达不会破坏帧同步
func (client *Client) pump() {
	conn, sender := client.link()
	if conn == nil {
		return
	}

	if client.pending == nil {
		data, err := conn.Receive(protocol.HeaderLen, 0)
		if err != nil {
			connection.HandleReadError(conn.ConnID(), err)
			client.closeConnection("connection lost")
			return
		}
		if data == nil {
			client.idle(protocol.IdleTime)
			return
		}
		header, err := protocol.ParseHeader(data)
		if err != nil {
			client.closeConnection(fmt.Sprintf("malformed header: %v", err))
			return
		}
		metrics.FrameReceived(header.Type.String())
		logger.DebugF("[%s] Receive %s frame, id=%d len=%d", conn.ConnID(), header.Type, header.ID, header.Length)

		if header.ID == 0 {
			client.closeConnection("message id 0 is reserved")
			return
		}

		switch header.Type {
		case protocol.RSP:
			if client.hb.Ack(header.ID) {
				logger.DebugF("[%s] Heartbeat acknowledged, id=%d", conn.ConnID(), header.ID)
			}
			return
		case protocol.PING:
			if err := sender.Send(protocol.EncodeStatusResponse(header.ID, protocol.StatusSuccess), true); err != nil {
				logger.ErrorF("[%s] Fail to answer server ping, details: %v", conn.ConnID(), err)
				client.closeConnection("ping answer failed")
				return
			}
			metrics.FrameSent(protocol.RSP.String())
			logger.DebugF("[%s] Server ping answered, id=%d", conn.ConnID(), header.ID)
			return
		case protocol.HW, protocol.BRIDGE:
			client.pending = &header
		default:
			client.closeConnection(fmt.Sprintf("unknown message type %d", byte(header.Type)))
			return
		}
	}

	header := *client.pending
	var args []string
	if header.Length > 0 {
		body, err := conn.Receive(int(header.Length), protocol.MinSocketTimeout)
		if err != nil {
			connection.HandleReadError(conn.ConnID(), err)
			client.pending = nil
			client.closeConnection("connection lost")
			return
		}
		if body == nil {
			return
		}
		args = protocol.SplitBody(body)
	}
	client.pending = nil

	replies, err := client.dispatcher.Handle(header, args)
	if err != nil {
		logger.ErrorF("[%s] Protocol violation, details: %v", conn.ConnID(), err)
		client.closeConnection("protocol violation")
		return
	}
	for _, reply := range replies {
		if err := sender.Send(reply, false); err != nil {
			logger.ErrorF("[%s] Fail to send reply, details: %v", conn.ConnID(), err)
			continue
		}
		metrics.FrameSent(protocol.HW.String())
	}
}

// secondTick 每个墙钟秒执行一次：重置发送配额、喂狗、心跳检查
func (client *Client) secondTick(now time.Time) {
	if !client.limiter.Tick(now) {
		return
	}
	client.wd.Feed()
	if client.State() != StateAuthenticated {
		return
	}

	if client.hb.Expired(now) {
		logger.WarnF("Heartbeat unanswered for %v, server is offline", protocol.MaxSocketTimeout)
		metrics.HeartbeatTimeout()
		client.closeConnection("server is offline")
		return
	}
	if !client.hb.Due(now) {
		return
	}
	sender := client.senderRef()
	if sender == nil {
		return
	}
	id := client.ids.NextID()
	if err := sender.Send(protocol.EncodeHeader(protocol.Header{Type: protocol.PING, ID: id}), true); err != nil {
		logger.ErrorF("Fail to send heartbeat, details: %v", err)
		client.closeConnection("heartbeat send failed")
		return
	}
	metrics.FrameSent(protocol.PING.String())
	client.hb.MarkSent(id, now)
	logger.DebugF("Heartbeat sent, id=%d", id)
}

// VirtualWrite 向平台上报虚拟引脚取值，未认证时丢弃并返回nil
func (client *Client) VirtualWrite(pinNum int, values ...string) error {
	if pinNum < 0 || pinNum >= protocol.MaxVirtualPins {
		return fmt.Errorf("%w: %d", pin.ErrPinOutOfRange, pinNum)
	}
	if len(values) == 0 {
		return errors.New("virtual write requires at least one value")
	}
	fields := append([]string{protocol.CmdVirtualWrite.String(), strconv.Itoa(pinNum)}, values...)
	sent, err := client.sendAuthenticated(protocol.HW, fields...)
	if err != nil {
		return err
	}
	if sent {
		client.dispatcher.Journal(pinNum, values, store.SourceDevice)
	}
	return nil
}

// Notify 推送应用通知
func (client *Client) Notify(message string) error {
	_, err := client.sendAuthenticated(protocol.NOTIFY, message)
	return err
}

// Tweet 推送社交消息
func (client *Client) Tweet(message string) error {
	_, err := client.sendAuthenticated(protocol.TWEET, message)
	return err
}

// Email 推送邮件
func (client *Client) Email(to, subject, body string) error {
	_, err := client.sendAuthenticated(protocol.EMAIL, to, subject, body)
	return err
}

// SyncAll 请求平台重发全部引脚状态
func (client *Client) SyncAll() error {
	_, err := client.sendAuthenticated(protocol.HWSYNC)
	return err
}

// SyncVirtual 请求平台重发指定虚拟引脚的状态
func (client *Client) SyncVirtual(pins ...int) error {
	if len(pins) == 0 {
		return errors.New("sync virtual requires at least one pin")
	}
	fields := []string{protocol.CmdVirtualRead.String()}
	for _, pinNum := range pins {
		if pinNum < 0 || pinNum >= protocol.MaxVirtualPins {
			return fmt.Errorf("%w: %d", pin.ErrPinOutOfRange, pinNum)
		}
		fields = append(fields, strconv.Itoa(pinNum))
	}
	_, err := client.sendAuthenticated(protocol.HWSYNC, fields...)
	return err
}

// sendAuthenticated 认证态下的常规发送，未认证时丢弃
func (client *Client) sendAuthenticated(messageType protocol.MessageType, fields ...string) (bool, error) {
	sender := client.senderRef()
	if sender == nil || client.State() != StateAuthenticated {
		logger.DebugF("%s dropped, device not authenticated", messageType)
		return false, nil
	}
	frame, err := protocol.EncodeMessage(messageType, client.ids.NextID(), fields...)
	if err != nil {
		return false, err
	}
	if err := sender.Send(frame, false); err != nil {
		return false, err
	}
	metrics.FrameSent(messageType.String())
	return true, nil
}

// closeConnection 关闭当前连接并进入重连退避
func (client *Client) closeConnection(cause string) {
	client.mu.Lock()
	conn := client.conn
	client.conn = nil
	client.sender = nil
	client.state = NextState(client.state, EventLinkDown)
	client.mu.Unlock()

	client.pending = nil
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.ErrorF("[%s] Error occured while closing connection, details: %v", conn.ConnID(), err)
		}
		logger.WarnF("[%s] Connection closed: %s", conn.ConnID(), cause)
	}
	metrics.SetLinkState(int(StateDisconnected))
	client.backoff()
}

// teardown 停机时关闭连接，不触发重连退避
func (client *Client) teardown() {
	client.mu.Lock()
	conn := client.conn
	client.conn = nil
	client.sender = nil
	client.state = StateDisconnected
	client.mu.Unlock()

	client.pending = nil
	if conn != nil {
		_ = conn.Close()
		logger.InfoF("[%s] Connection closed", conn.ConnID())
	}
	metrics.SetLinkState(int(StateDisconnected))
}

// backoff 重连退避，先喂狗避免退避期间硬复位
func (client *Client) backoff() {
	if reconnectDelay <= 0 {
		return
	}
	client.wd.Feed()
	time.Sleep(reconnectDelay)
}

// idle 在绝对时间栅格上空转
//
// 栅格点落后超过一个周期时重新对齐，长阻塞之后不补偿空转
func (client *Client) idle(period time.Duration) {
	next := client.idleMark.Add(period)
	now := time.Now()
	if next.Before(now.Add(-period)) {
		next = now
	}
	if wait := next.Sub(now); wait > 0 {
		time.Sleep(wait)
	}
	client.idleMark = next
}

// applyEvent 推进连接状态机并更新指标
func (client *Client) applyEvent(event Event) {
	client.mu.Lock()
	old := client.state
	client.state = NextState(old, event)
	state := client.state
	client.mu.Unlock()

	if state != old {
		logger.DebugF("Connection state %s -> %s on %s", old, state, event)
		metrics.SetLinkState(int(state))
	}
}

func (client *Client) stopRequested(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	client.mu.Lock()
	defer client.mu.Unlock()
	return client.stopping
}

func (client *Client) connectWanted() bool {
	client.mu.Lock()
	defer client.mu.Unlock()
	return client.wantConnect
}

func (client *Client) link() (*connection.Conn, *connection.Sender) {
	client.mu.Lock()
	defer client.mu.Unlock()
	return client.conn, client.sender
}

func (client *Client) senderRef() *connection.Sender {
	client.mu.Lock()
	defer client.mu.Unlock()
	return client.sender
}

func (client *Client) setLink(conn *connection.Conn, sender *connection.Sender) {
	client.mu.Lock()
	client.conn = conn
	client.sender = sender
	client.mu.Unlock()
}

func (client *Client) serverAddr() string {
	return net.JoinHostPort(client.config.Server.Host, strconv.Itoa(client.config.Server.Port))
}
