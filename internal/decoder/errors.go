package decoder

import "errors"

var (
	// ErrUnsupportedFormat 没有对应扩展名的解码器
	ErrUnsupportedFormat = errors.New("不支持的音频格式")
	// ErrUnsupportedChannels 声道数超出单声道化的处理范围
	ErrUnsupportedChannels = errors.New("不支持的声道数")
	// ErrUnknownMonoMethod 未知的单声道化方式
	ErrUnknownMonoMethod = errors.New("未知的单声道化方式")
	// ErrInvalidBitDepth 输出位深度只支持 16 和 24
	ErrInvalidBitDepth = errors.New("不支持的位深度")
	// ErrInvalidSampleRate 采样率必须为正数
	ErrInvalidSampleRate = errors.New("采样率不合法")
)
