package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// bodySeparator 报文体字段之间的分隔符
const bodySeparator = "\x00"

// UInt16ToBytes 将uint16编码为字节流（大端序）
func UInt16ToBytes(number uint16) []byte {
	result := make([]byte, 2)
	binary.BigEndian.PutUint16(result, number)
	return result
}

// BytesToUInt16 从字节流解码uint16（大端序）
func BytesToUInt16(data []byte) uint16 {
	if len(data) < 2 {
		return 0
	}
	return binary.BigEndian.Uint16(data)
}

// EncodeHeader 编码5字节报文头
func EncodeHeader(header Header) []byte {
	buf := make([]byte, HeaderLen)
	buf[0] = byte(header.Type)
	binary.BigEndian.PutUint16(buf[1:3], header.ID)
	binary.BigEndian.PutUint16(buf[3:5], header.Length)
	return buf
}

// ParseHeader 解析5字节报文头
//
// 调用方必须提供正好 HeaderLen 字节；不足的缓冲区应当视为"数据未就绪"
// 而不是传给本函数
func ParseHeader(data []byte) (Header, error) {
	if len(data) != HeaderLen {
		return Header{}, fmt.Errorf("message header requires exactly %d bytes, got %d", HeaderLen, len(data))
	}
	return Header{
		Type:   MessageType(data[0]),
		ID:     binary.BigEndian.Uint16(data[1:3]),
		Length: binary.BigEndian.Uint16(data[3:5]),
	}, nil
}

// EncodeMessage 构造一条完整的控制报文
//
// 报文体为各字段的文本形式以单个NUL字节连接，前置大端序报文头。
// 零个字段编码为长度为0的合法报文体
func EncodeMessage(messageType MessageType, id uint16, fields ...string) ([]byte, error) {
	body := strings.Join(fields, bodySeparator)
	if len(body) > math.MaxUint16 {
		return nil, fmt.Errorf("message body length %d exceeds %d bytes", len(body), math.MaxUint16)
	}
	packet := EncodeHeader(Header{Type: messageType, ID: id, Length: uint16(len(body))})
	return append(packet, body...), nil
}

// EncodeStatusResponse 构造一条RSP报文，Length字段承载状态码
func EncodeStatusResponse(id uint16, status uint16) []byte {
	return EncodeHeader(Header{Type: RSP, ID: id, Length: status})
}

// SplitBody 将报文体按NUL分隔还原为字段序列
//
// 空报文体还原为零个字段
func SplitBody(body []byte) []string {
	if len(body) == 0 {
		return nil
	}
	return strings.Split(string(body), bodySeparator)
}
