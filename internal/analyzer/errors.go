package analyzer

import "errors"

var (
	// ErrInvalidGeometry 窗口、跳长或采样率不合法
	ErrInvalidGeometry = errors.New("分析窗口参数不合法")
	// ErrInvalidThresholds 阈值组合不合法
	ErrInvalidThresholds = errors.New("稳定性阈值不合法")
)
