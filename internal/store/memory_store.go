package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrPinStateNotFound 影子存储中不存在该引脚的状态
var ErrPinStateNotFound = errors.New("pin state does not exist")

// MemoryStore 进程内影子存储
//
// 主循环写入、应用侧读取，读写加锁
type MemoryStore struct {
	mu     sync.RWMutex
	states map[int]PinState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[int]PinState),
	}
}

func (ms *MemoryStore) Save(state PinState) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.states[state.Pin] = state
	return nil
}

func (ms *MemoryStore) Get(pinNum int) (*PinState, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	state, ok := ms.states[pinNum]
	if !ok {
		return nil, fmt.Errorf("%w: pin %d", ErrPinStateNotFound, pinNum)
	}
	return &state, nil
}

func (ms *MemoryStore) All() ([]PinState, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	states := make([]PinState, 0, len(ms.states))
	for _, state := range ms.states {
		states = append(states, state)
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].Pin < states[j].Pin
	})
	return states, nil
}

func (ms *MemoryStore) Delete(pinNum int) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.states, pinNum)
	return nil
}
