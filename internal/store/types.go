// Package store 实现了虚拟引脚状态的影子存储
package store

import "time"

const PinStateCollectionName = "pin_states"

// 状态来源
const (
	SourcePlatform = "platform" // 平台下发
	SourceDevice   = "device"   // 设备上报
)

// PinState 一个虚拟引脚的最近取值
type PinState struct {
	Pin       int       `bson:"pin" json:"pin"`
	Values    []string  `bson:"values" json:"values"`
	Source    string    `bson:"source" json:"source"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ShadowStore 影子状态存储
type ShadowStore interface {
	Save(state PinState) error
	Get(pinNum int) (*PinState, error)
	All() ([]PinState, error)
	Delete(pinNum int) error
}
