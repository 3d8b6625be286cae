package decoder

import (
	"fmt"
	"io"
	"os"
	"time"

	"afterglow-engine/internal/types"

	gomp3 "github.com/hajimehoshi/go-mp3"
)

// go-mp3 固定输出 16 位小端立体声
const (
	mp3Channels      = 2
	mp3BitDepth      = 16
	mp3BytesPerFrame = mp3Channels * 2
)

// MP3Decoder MP3格式解码器
type MP3Decoder struct{}

// MP3File MP3文件实现
type MP3File struct {
	decoder    *gomp3.Decoder
	file       *os.File
	sampleRate int
	duration   time.Duration
	samples    []float64
}

// SupportedFormats 返回支持的格式
func (d *MP3Decoder) SupportedFormats() []string {
	return []string{"mp3"}
}

// Decode 解码MP3文件
func (d *MP3Decoder) Decode(filePath string) (types.AudioFile, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("打开MP3文件失败: %w", err)
	}

	decoder, err := gomp3.NewDecoder(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("解析MP3文件失败: %w", err)
	}

	var duration time.Duration
	if length := decoder.Length(); length > 0 {
		duration = framesDuration(length/mp3BytesPerFrame, decoder.SampleRate())
	}

	return &MP3File{
		decoder:    decoder,
		file:       file,
		sampleRate: decoder.SampleRate(),
		duration:   duration,
	}, nil
}

// GetFormat 获取格式名称
func (m *MP3File) GetFormat() string {
	return "MP3"
}

// GetSampleRate 获取采样率
func (m *MP3File) GetSampleRate() int {
	return m.sampleRate
}

// GetBitDepth 获取位深度
func (m *MP3File) GetBitDepth() int {
	return mp3BitDepth
}

// GetChannels 获取声道数
func (m *MP3File) GetChannels() int {
	return mp3Channels
}

// GetDuration 获取时长
func (m *MP3File) GetDuration() time.Duration {
	return m.duration
}

// GetSamples 获取交错排列的音频采样
func (m *MP3File) GetSamples() ([]float64, error) {
	if m.samples != nil {
		return m.samples, nil
	}

	raw, err := io.ReadAll(m.decoder)
	if err != nil {
		return nil, fmt.Errorf("解码MP3数据失败: %w", err)
	}

	samples := make([]float64, len(raw)/2)
	for i := range samples {
		v := int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
		samples[i] = float64(v) / 32768.0
	}

	if m.duration == 0 {
		m.duration = framesDuration(int64(len(samples)/mp3Channels), m.sampleRate)
	}
	m.samples = samples
	return samples, nil
}

// GetMetadata 获取元数据
func (m *MP3File) GetMetadata() types.AudioMetadata {
	return types.AudioMetadata{
		Duration: m.duration.String(),
	}
}

// Close 关闭文件
func (m *MP3File) Close() error {
	if m.file != nil {
		return m.file.Close()
	}
	return nil
}
