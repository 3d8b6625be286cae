package synth

import "errors"

var (
	// ErrSilent 输入峰值低于静音门限，无法归一化
	ErrSilent = errors.New("音频为静音")
	// ErrInvalidConfig 合成参数不合法
	ErrInvalidConfig = errors.New("合成参数不合法")
	// ErrInvalidInput 输入为空或包含 NaN/Inf
	ErrInvalidInput = errors.New("输入音频不合法")
)
