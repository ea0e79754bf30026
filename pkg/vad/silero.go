package vad

import (
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	// sileroWindowSize 每次推理的采样数。
	// Silero VAD v5 在 16 kHz 下要求恰好 512 个采样（32 ms）。
	sileroWindowSize = 512

	// sileroStateSize 每层隐藏状态维度，v5 的状态张量形状为 [2, 1, 128]
	sileroStateSize = 128

	// sileroSampleRate Silero VAD 要求 16 kHz 输入
	sileroSampleRate = 16000
)

// ortInitOnce 保证 ONNX Runtime 环境只初始化一次，
// 失败结果保存在包级变量里，后续创建调用直接返回该错误。
var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// SileroScorer 通过 ONNX Runtime 运行 Silero VAD v5 推理。
// 每个会话持有自己的实例：RNN 隐藏状态跨调用携带，
// 不足一个窗口的采样缓存到下一次调用。
type SileroScorer struct {
	session *ort.AdvancedSession

	inputTensor *ort.Tensor[float32] // [1, 512]
	stateTensor *ort.Tensor[float32] // [2, 1, 128]
	srTensor    *ort.Tensor[int64]   // 标量

	outputTensor *ort.Tensor[float32] // [1, 1]
	stateNTensor *ort.Tensor[float32] // [2, 1, 128]

	pcmBuf   []float32
	lastProb float64

	// inferFn 对一个完整窗口推理，默认指向 runInference
	inferFn func(window []float32) (float32, error)
}

// NewSileroFactory 返回一个为每个会话创建独立 SileroScorer 的工厂。
// modelPath 是 silero_vad.onnx 文件路径，libPath 是 onnxruntime
// 动态库路径（为空时使用进程默认查找规则）。
func NewSileroFactory(modelPath, libPath string) ScorerFactory {
	return func(samplingRate int) (Scorer, error) {
		if samplingRate != sileroSampleRate {
			return nil, fmt.Errorf("silero: unsupported sampling rate %d, expected %d", samplingRate, sileroSampleRate)
		}
		return NewSileroScorer(modelPath, libPath)
	}
}

// NewSileroScorer 初始化 ONNX Runtime、加载模型并分配输入输出张量
func NewSileroScorer(modelPath, libPath string) (*SileroScorer, error) {
	modelData, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, fmt.Errorf("silero: read model: %w", err)
	}

	ortInitOnce.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("silero: %w", ortInitErr)
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, sileroWindowSize))
	if err != nil {
		return nil, fmt.Errorf("silero: create input tensor: %w", err)
	}
	stateTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(2, 1, sileroStateSize))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("silero: create state tensor: %w", err)
	}
	srTensor, err := ort.NewTensor(ort.NewShape(1), []int64{int64(sileroSampleRate)})
	if err != nil {
		inputTensor.Destroy()
		stateTensor.Destroy()
		return nil, fmt.Errorf("silero: create sr tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		inputTensor.Destroy()
		stateTensor.Destroy()
		srTensor.Destroy()
		return nil, fmt.Errorf("silero: create output tensor: %w", err)
	}
	stateNTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(2, 1, sileroStateSize))
	if err != nil {
		inputTensor.Destroy()
		stateTensor.Destroy()
		srTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("silero: create stateN tensor: %w", err)
	}

	// 显式清零状态张量，onnxruntime_go 不保证分配的内存为零
	clearFloat32Slice(stateTensor.GetData())
	clearFloat32Slice(stateNTensor.GetData())

	session, err := ort.NewAdvancedSessionWithONNXData(
		modelData,
		[]string{"input", "state", "sr"},
		[]string{"output", "stateN"},
		[]ort.Value{inputTensor, stateTensor, srTensor},
		[]ort.Value{outputTensor, stateNTensor},
		nil,
	)
	if err != nil {
		inputTensor.Destroy()
		stateTensor.Destroy()
		srTensor.Destroy()
		outputTensor.Destroy()
		stateNTensor.Destroy()
		return nil, fmt.Errorf("silero: create session: %w", err)
	}

	s := &SileroScorer{
		session:      session,
		inputTensor:  inputTensor,
		stateTensor:  stateTensor,
		srTensor:     srTensor,
		outputTensor: outputTensor,
		stateNTensor: stateNTensor,
		pcmBuf:       make([]float32, 0, sileroWindowSize*2),
	}
	s.inferFn = s.runInference
	return s, nil
}

// Score 缓存采样并对每个完整的 512 采样窗口推理一次，
// 返回本次调用完成的窗口中的最大概率；
// 不足一个窗口时返回上一次的概率。
func (s *SileroScorer) Score(samples []float32) (float64, error) {
	prevLen := len(s.pcmBuf)
	s.pcmBuf = append(s.pcmBuf, samples...)

	scored := false
	maxProb := 0.0
	consumed := 0
	for len(s.pcmBuf)-consumed >= sileroWindowSize {
		prob, err := s.inferFn(s.pcmBuf[consumed : consumed+sileroWindowSize])
		if err != nil {
			// 丢掉本次追加的采样，调用方原样重试时不会重复缓存
			s.pcmBuf = s.pcmBuf[:prevLen]
			return 0, err
		}
		consumed += sileroWindowSize
		if p := float64(prob); !scored || p > maxProb {
			maxProb = p
		}
		scored = true
	}
	s.pcmBuf = s.pcmBuf[consumed:]

	if scored {
		s.lastProb = maxProb
	}
	return s.lastProb, nil
}

// Reset 清除全部内部状态：RNN 隐藏状态、采样缓冲和缓存的概率
func (s *SileroScorer) Reset() {
	clearFloat32Slice(s.stateTensor.GetData())
	s.pcmBuf = s.pcmBuf[:0]
	s.lastProb = 0
}

// Close 释放 ONNX Runtime 资源，可以安全地多次调用
func (s *SileroScorer) Close() error {
	if s.session != nil {
		s.session.Destroy()
		s.session = nil
	}
	if s.inputTensor != nil {
		s.inputTensor.Destroy()
		s.inputTensor = nil
	}
	if s.stateTensor != nil {
		s.stateTensor.Destroy()
		s.stateTensor = nil
	}
	if s.srTensor != nil {
		s.srTensor.Destroy()
		s.srTensor = nil
	}
	if s.outputTensor != nil {
		s.outputTensor.Destroy()
		s.outputTensor = nil
	}
	if s.stateNTensor != nil {
		s.stateNTensor.Destroy()
		s.stateNTensor = nil
	}
	return nil
}

// runInference 对恰好 512 个采样运行一次推理
func (s *SileroScorer) runInference(window []float32) (float32, error) {
	copy(s.inputTensor.GetData(), window)

	if err := s.session.Run(); err != nil {
		return 0, fmt.Errorf("silero: inference: %w", err)
	}

	prob := s.outputTensor.GetData()[0]

	// 携带隐藏状态：stateN → state
	copy(s.stateTensor.GetData(), s.stateNTensor.GetData())

	return prob, nil
}

func clearFloat32Slice(s []float32) {
	for i := range s {
		s[i] = 0
	}
}
