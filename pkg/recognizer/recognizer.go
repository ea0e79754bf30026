package recognizer

import "context"

// Result 一次离线识别的结果
type Result struct {
	// Text 规范化后的识别文本
	Text string `json:"text"`
	// Language 检测到的语言代码，如 zh、en
	Language string `json:"language"`
}

// TranscribeService 离线语音识别服务接口
type TranscribeService interface {
	// Recognize 识别 audioPath 指向的 WAV 文件并返回文本与语言。
	// ctx 取消时应中止底层识别进程。
	Recognize(ctx context.Context, audioPath string) (*Result, error)
}
