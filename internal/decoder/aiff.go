package decoder

import (
	"fmt"
	"os"
	"time"

	"afterglow-engine/internal/types"

	"github.com/go-audio/aiff"
)

// AIFFDecoder AIFF格式解码器
type AIFFDecoder struct{}

// AIFFFile AIFF文件实现
type AIFFFile struct {
	decoder    *aiff.Decoder
	file       *os.File
	sampleRate int
	bitDepth   int
	channels   int
	duration   time.Duration
	samples    []float64
}

// SupportedFormats 返回支持的格式
func (d *AIFFDecoder) SupportedFormats() []string {
	return []string{"aif", "aiff"}
}

// Decode 解码AIFF文件
func (d *AIFFDecoder) Decode(filePath string) (types.AudioFile, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("打开AIFF文件失败: %w", err)
	}

	decoder := aiff.NewDecoder(file)
	if !decoder.IsValidFile() {
		file.Close()
		return nil, fmt.Errorf("无效的AIFF文件: %s", filePath)
	}
	decoder.ReadInfo()

	format := decoder.Format()
	if format == nil || format.SampleRate <= 0 {
		file.Close()
		return nil, fmt.Errorf("AIFF头信息不完整: %s", filePath)
	}

	duration, err := decoder.Duration()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("读取AIFF时长失败: %w", err)
	}

	return &AIFFFile{
		decoder:    decoder,
		file:       file,
		sampleRate: format.SampleRate,
		bitDepth:   int(decoder.BitDepth),
		channels:   format.NumChannels,
		duration:   duration,
	}, nil
}

// GetFormat 获取格式名称
func (a *AIFFFile) GetFormat() string {
	return "AIFF"
}

// GetSampleRate 获取采样率
func (a *AIFFFile) GetSampleRate() int {
	return a.sampleRate
}

// GetBitDepth 获取位深度
func (a *AIFFFile) GetBitDepth() int {
	return a.bitDepth
}

// GetChannels 获取声道数
func (a *AIFFFile) GetChannels() int {
	return a.channels
}

// GetDuration 获取时长
func (a *AIFFFile) GetDuration() time.Duration {
	return a.duration
}

// GetSamples 获取交错排列的音频采样
func (a *AIFFFile) GetSamples() ([]float64, error) {
	if a.samples != nil {
		return a.samples, nil
	}

	buf, err := a.decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("读取AIFF采样失败: %w", err)
	}

	a.samples = intToFloat(buf.Data, a.bitDepth)
	return a.samples, nil
}

// GetMetadata 获取元数据
func (a *AIFFFile) GetMetadata() types.AudioMetadata {
	return types.AudioMetadata{
		Duration: a.duration.String(),
	}
}

// Close 关闭文件
func (a *AIFFFile) Close() error {
	if a.file != nil {
		return a.file.Close()
	}
	return nil
}
