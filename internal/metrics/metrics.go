// Package metrics 基于Prometheus暴露设备侧的运行指标
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "device_agent"

var (
	framesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "protocol",
		Name:      "frames_received_total",
		Help:      "Total number of protocol frames received, by message type",
	}, []string{"type"})

	framesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "protocol",
		Name:      "frames_sent_total",
		Help:      "Total number of protocol frames sent, by message type",
	}, []string{"type"})

	sendsThrottled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "protocol",
		Name:      "sends_throttled_total",
		Help:      "Total number of frames dropped by the outbound rate limiter",
	})

	sendRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "protocol",
		Name:      "send_retries_total",
		Help:      "Total number of transient send failures that were retried",
	})

	reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "link",
		Name:      "reconnects_total",
		Help:      "Total number of connection attempts after the first",
	})

	authFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "link",
		Name:      "auth_failures_total",
		Help:      "Total number of rejected or timed out authentications",
	})

	heartbeatTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "link",
		Name:      "heartbeat_timeouts_total",
		Help:      "Total number of connections dropped for missing heartbeat answers",
	})

	linkState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "link",
		Name:      "state",
		Help:      "Current connection state as a numeric enum value",
	})

	shadowWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "shadow",
		Name:      "writes_total",
		Help:      "Total number of pin state journal writes, by result",
	}, []string{"result"})
)

// FrameReceived 记录一帧入站报文
func FrameReceived(msgType string) {
	framesReceived.WithLabelValues(msgType).Inc()
}

// FrameSent 记录一帧出站报文
func FrameSent(msgType string) {
	framesSent.WithLabelValues(msgType).Inc()
}

// SendThrottled 记录一次被限流丢弃的发送
func SendThrottled() {
	sendsThrottled.Inc()
}

// SendRetried 记录一次瞬时失败后的发送重试
func SendRetried() {
	sendRetries.Inc()
}

// Reconnect 记录一次重连
func Reconnect() {
	reconnects.Inc()
}

// AuthFailure 记录一次认证失败
func AuthFailure() {
	authFailures.Inc()
}

// HeartbeatTimeout 记录一次心跳超时断连
func HeartbeatTimeout() {
	heartbeatTimeouts.Inc()
}

// SetLinkState 更新连接状态枚举值
func SetLinkState(state int) {
	linkState.Set(float64(state))
}

// ShadowWrite 记录一次影子状态写入的结果
func ShadowWrite(result string) {
	shadowWrites.WithLabelValues(result).Inc()
}

// Handler 返回Prometheus抓取端点的HTTP处理器
func Handler() http.Handler {
	return promhttp.Handler()
}
