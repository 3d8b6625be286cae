// Package rng 提供可设种子、可保存和恢复状态的随机数流
//
// 每个合成引擎持有自己的 Stream，不读写进程级的全局随机源。
package rng

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// 第二个种子字由第一个派生
const seedMix = 0x9e3779b97f4a7c15

// Stream 独占的 PCG 随机数流，不是并发安全的
type Stream struct {
	pcg  *rand.PCG
	rand *rand.Rand
}

// New 使用给定种子创建随机数流
func New(seed int64) *Stream {
	pcg := rand.NewPCG(seedWords(seed))
	return &Stream{pcg: pcg, rand: rand.New(pcg)}
}

// NewUnseeded 使用随机种子创建随机数流
func NewUnseeded() *Stream {
	pcg := rand.NewPCG(rand.Uint64(), rand.Uint64())
	return &Stream{pcg: pcg, rand: rand.New(pcg)}
}

// Rand 返回绑定在该流上的 *rand.Rand
func (s *Stream) Rand() *rand.Rand {
	return s.rand
}

// Reseed 用新种子重置随机数流
func (s *Stream) Reseed(seed int64) {
	s.pcg.Seed(seedWords(seed))
}

// Snapshot 保存当前状态
func (s *Stream) Snapshot() ([]byte, error) {
	state, err := s.pcg.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("保存随机数状态失败: %w", err)
	}
	return state, nil
}

// Restore 恢复到 Snapshot 保存的状态
func (s *Stream) Restore(state []byte) error {
	if err := s.pcg.UnmarshalBinary(state); err != nil {
		return fmt.Errorf("恢复随机数状态失败: %w", err)
	}
	return nil
}

// Scoped 在 seed 决定的随机序列上执行 fn，结束后恢复原有状态
//
// seed 为 nil 时直接在当前流上执行，fn 消耗的随机数会保留在流中。
func (s *Stream) Scoped(seed *int64, fn func(r *rand.Rand) error) (err error) {
	if seed == nil {
		return fn(s.rand)
	}

	state, err := s.Snapshot()
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, s.Restore(state))
	}()

	s.Reseed(*seed)
	return fn(s.rand)
}

func seedWords(seed int64) (uint64, uint64) {
	return uint64(seed), uint64(seed) ^ seedMix
}
