package synthesizer

import "context"

// SynthesizeService 语音合成服务接口
type SynthesizeService interface {
	// Synthesize 将 text 合成为 WAV 音频并返回字节流。
	// voice 为空时使用服务的默认发音人。
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}
