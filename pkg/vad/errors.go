package vad

import "errors"

var (
	// ErrInvalidAudio 音频数据为空或无法按 16-bit PCM 解码
	ErrInvalidAudio = errors.New("vad: invalid audio payload")

	// ErrScorerUnavailable 帧级打分器不可用或调用失败
	ErrScorerUnavailable = errors.New("vad: scorer unavailable")
)
