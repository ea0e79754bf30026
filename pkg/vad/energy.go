package vad

import "math"

// EnergyScorer 基于 RMS 能量的纯 Go 打分器。
// 把归一化采样的 RMS 线性映射到概率：prob = min(rms/reference, 1)。
// reference 是视为"确定有语音"的 RMS 水平，正常语音在归一化刻度上
// 通常落在 0.02-0.2 之间，静音在 0.005 以下。
type EnergyScorer struct {
	reference float64
}

// NewEnergyScorer 创建能量打分器，reference <= 0 时使用默认值 0.1
func NewEnergyScorer(reference float64) *EnergyScorer {
	if reference <= 0 {
		reference = 0.1
	}
	return &EnergyScorer{reference: reference}
}

// Score 返回音频块包含语音的概率
func (s *EnergyScorer) Score(samples []float32) (float64, error) {
	rms := calculateRMS(samples)
	prob := rms / s.reference
	if prob > 1 {
		prob = 1
	}
	return prob, nil
}

// Reset 能量打分器无内部状态
func (s *EnergyScorer) Reset() {}

// calculateRMS 计算归一化采样的 RMS (Root Mean Square)
func calculateRMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sumSquares float64
	for _, v := range samples {
		f := float64(v)
		sumSquares += f * f
	}
	return math.Sqrt(sumSquares / float64(len(samples)))
}
