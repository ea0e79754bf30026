package vad

// Scorer 帧级语音概率打分器
// 输入一段归一化到 [-1, 1) 的采样，返回该段包含语音的概率（0-1）。
// 打分器可以持有内部状态（例如模型的隐藏状态），由所属会话独占，
// 不要求并发安全。
type Scorer interface {
	// Score 返回音频块包含语音的概率
	Score(samples []float32) (float64, error)
	// Reset 清除打分器内部状态
	Reset()
}

// ScorerFactory 为新会话创建独立的打分器实例
type ScorerFactory func(samplingRate int) (Scorer, error)

// pcmToFloat32 将 little-endian 16-bit PCM 转换为 [-1, 1) 的 float32 采样。
// 除以 32768（而不是 32767），使 int16 全量程映射到 [-1.0, ~0.99997]。
func pcmToFloat32(buf []byte) []float32 {
	n := len(buf) / 2
	if n == 0 {
		return nil
	}
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		u := uint16(buf[2*i]) | uint16(buf[2*i+1])<<8
		samples[i] = float32(int16(u)) / 32768.0
	}
	return samples
}
