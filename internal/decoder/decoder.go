package decoder

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"afterglow-engine/internal/types"
)

// AudioDecoder 音频解码器接口
type AudioDecoder interface {
	Decode(filePath string) (types.AudioFile, error)
	SupportedFormats() []string
}

// Registry 解码器注册表
type Registry struct {
	decoders map[string]AudioDecoder
}

// NewRegistry 创建注册了全部内置解码器的注册表
func NewRegistry() *Registry {
	registry := &Registry{
		decoders: make(map[string]AudioDecoder),
	}

	registry.Register(&WAVDecoder{})
	registry.Register(&FLACDecoder{})
	registry.Register(&MP3Decoder{})
	registry.Register(&VorbisDecoder{})
	registry.Register(&AIFFDecoder{})

	return registry
}

// Register 注册解码器
func (r *Registry) Register(decoder AudioDecoder) {
	for _, format := range decoder.SupportedFormats() {
		r.decoders[strings.ToLower(format)] = decoder
	}
}

// Extensions 返回已注册的扩展名（带点号，已排序）
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.decoders))
	for format := range r.decoders {
		exts = append(exts, "."+format)
	}
	sort.Strings(exts)
	return exts
}

// Supports 判断文件扩展名是否有对应解码器
func (r *Registry) Supports(filePath string) bool {
	_, err := r.GetDecoder(filePath)
	return err == nil
}

// GetDecoder 根据文件扩展名获取解码器
func (r *Registry) GetDecoder(filePath string) (AudioDecoder, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	if ext == "" {
		return nil, fmt.Errorf("无法确定文件格式: %s: %w", filePath, ErrUnsupportedFormat)
	}

	// 移除点号
	ext = ext[1:]

	decoder, exists := r.decoders[ext]
	if !exists {
		return nil, fmt.Errorf("%s: %w", ext, ErrUnsupportedFormat)
	}

	return decoder, nil
}

// DecodeFile 解码音频文件
func (r *Registry) DecodeFile(filePath string) (types.AudioFile, error) {
	decoder, err := r.GetDecoder(filePath)
	if err != nil {
		return nil, err
	}

	return decoder.Decode(filePath)
}
