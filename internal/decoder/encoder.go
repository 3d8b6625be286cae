package decoder

import (
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavFormatPCM RIFF 中的整数 PCM 格式码
const wavFormatPCM = 1

// WriteWAV 把单声道浮点采样写成 16 或 24 位 PCM WAV，超出 [-1, 1] 的部分截断
func WriteWAV(path string, samples []float64, sampleRate, bitDepth int) (err error) {
	if bitDepth != 16 && bitDepth != 24 {
		return fmt.Errorf("%d bit: %w", bitDepth, ErrInvalidBitDepth)
	}
	if sampleRate <= 0 {
		return fmt.Errorf("%d: %w", sampleRate, ErrInvalidSampleRate)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建WAV文件失败: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("关闭WAV文件失败: %w", cerr)
		}
	}()

	scale := fullScale(bitDepth) - 1
	data := make([]int, len(samples))
	for i, v := range samples {
		data[i] = int(math.Round(math.Max(-1, math.Min(1, v)) * scale))
	}

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		Data:           data,
		SourceBitDepth: bitDepth,
	}

	encoder := wav.NewEncoder(file, sampleRate, bitDepth, 1, wavFormatPCM)
	if err := encoder.Write(buf); err != nil {
		return fmt.Errorf("写入WAV数据失败: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("写入WAV头失败: %w", err)
	}
	return nil
}
