package decoder

import (
	"fmt"
	"io"
	"os"
	"time"

	"afterglow-engine/internal/types"

	"github.com/jfreymuth/oggvorbis"
)

// VorbisDecoder Ogg Vorbis格式解码器
type VorbisDecoder struct{}

// VorbisFile Ogg Vorbis文件实现
type VorbisFile struct {
	file       *os.File
	sampleRate int
	channels   int
	duration   time.Duration
	samples    []float64
}

// SupportedFormats 返回支持的格式
func (d *VorbisDecoder) SupportedFormats() []string {
	return []string{"ogg", "oga"}
}

// Decode 解码Ogg Vorbis文件
func (d *VorbisDecoder) Decode(filePath string) (types.AudioFile, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("打开Ogg文件失败: %w", err)
	}

	reader, err := oggvorbis.NewReader(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("解析Ogg Vorbis文件失败: %w", err)
	}

	return &VorbisFile{
		file:       file,
		sampleRate: reader.SampleRate(),
		channels:   reader.Channels(),
		duration:   framesDuration(reader.Length(), reader.SampleRate()),
	}, nil
}

// GetFormat 获取格式名称
func (v *VorbisFile) GetFormat() string {
	return "OGG"
}

// GetSampleRate 获取采样率
func (v *VorbisFile) GetSampleRate() int {
	return v.sampleRate
}

// GetBitDepth Vorbis 没有位深度概念，按 16 位报告
func (v *VorbisFile) GetBitDepth() int {
	return 16
}

// GetChannels 获取声道数
func (v *VorbisFile) GetChannels() int {
	return v.channels
}

// GetDuration 获取时长
func (v *VorbisFile) GetDuration() time.Duration {
	return v.duration
}

// GetSamples 获取交错排列的音频采样
func (v *VorbisFile) GetSamples() ([]float64, error) {
	if v.samples != nil {
		return v.samples, nil
	}

	if _, err := v.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("定位Ogg文件失败: %w", err)
	}
	data, _, err := oggvorbis.ReadAll(v.file)
	if err != nil {
		return nil, fmt.Errorf("解码Ogg Vorbis数据失败: %w", err)
	}

	samples := make([]float64, len(data))
	for i, s := range data {
		samples[i] = float64(s)
	}

	if v.duration == 0 && v.channels > 0 {
		v.duration = framesDuration(int64(len(samples)/v.channels), v.sampleRate)
	}
	v.samples = samples
	return samples, nil
}

// GetMetadata 获取元数据
func (v *VorbisFile) GetMetadata() types.AudioMetadata {
	return types.AudioMetadata{
		Duration: v.duration.String(),
	}
}

// Close 关闭文件
func (v *VorbisFile) Close() error {
	if v.file != nil {
		return v.file.Close()
	}
	return nil
}
