package vad

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultSessionID 未指定会话时使用的会话标识
const DefaultSessionID = "default"

// Phase 会话的当前状态
type Phase int

const (
	// PhaseSilence 静音阶段（初始状态）
	PhaseSilence Phase = iota
	// PhaseSpeech 语音进行中
	PhaseSpeech
)

// EventType 边界事件类型
type EventType string

const (
	// EventNone 本次音频块未产生边界事件
	EventNone EventType = ""
	// EventStart 语音开始
	EventStart EventType = "start"
	// EventEnd 语音结束
	EventEnd EventType = "end"
)

// Event 一次 Process 调用的结果，每次调用最多产生一个边界事件
type Event struct {
	Type EventType
	// TimestampMs 边界时刻，毫秒。
	// start 事件为触发块的首个采样时刻；
	// end 事件为判定静音段开始的采样时刻（当前游标减去累计静音时长）。
	TimestampMs int64
}

// SessionConfig 会话参数，创建后保持不变
type SessionConfig struct {
	// Threshold 语音概率阈值，达到即视为语音帧
	Threshold float64
	// SamplingRate 采样率（samples/second），所有时长按此换算
	SamplingRate int
	// MinSilenceMs 确认语音结束所需的最短连续静音时长（毫秒），
	// 低于该时长的概率下探视为瞬时抖动，不切分话语
	MinSilenceMs int
}

// session 单个会话的全部可变状态，mu 串行化同一会话的 Process/Reset
type session struct {
	mu     sync.Mutex
	cfg    SessionConfig
	scorer Scorer

	phase             Phase
	silenceRunSamples int64 // 自最后一个语音帧起累计的静音采样数
	sampleCursor      int64 // 会话累计消费的采样数，单调不减
	lastActivity      time.Time
}

// minSilenceSamples 把配置的毫秒时长换算成采样数
func (s *session) minSilenceSamples() int64 {
	return int64(s.cfg.MinSilenceMs) * int64(s.cfg.SamplingRate) / 1000
}

// samplesToMs 采样数换算为毫秒
func (s *session) samplesToMs(n int64) int64 {
	return n * 1000 / int64(s.cfg.SamplingRate)
}

// Engine 流式 VAD 会话引擎。
// 每个 session_id 对应一个独立的迟滞阈值状态机；
// 不同会话之间完全隔离，可并发处理，
// 同一会话内的调用由会话锁串行化。
type Engine struct {
	defaults  SessionConfig
	newScorer ScorerFactory
	logger    *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*session

	ttl      time.Duration
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewEngine 创建会话引擎。defaults 为新会话的默认参数，
// factory 为每个会话创建独立的打分器。
func NewEngine(defaults SessionConfig, factory ScorerFactory, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaults.Threshold <= 0 {
		defaults.Threshold = 0.5
	}
	if defaults.SamplingRate <= 0 {
		defaults.SamplingRate = 16000
	}
	if defaults.MinSilenceMs <= 0 {
		defaults.MinSilenceMs = 500
	}

	return &Engine{
		defaults:  defaults,
		newScorer: factory,
		logger:    logger,
		sessions:  make(map[string]*session),
		stopChan:  make(chan struct{}),
	}
}

// StartCleanup 启动空闲会话清理。ttl <= 0 时不启动：
// 默认情况下会话在进程生命周期内一直存活。
func (e *Engine) StartCleanup(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	e.ttl = ttl
	ticker := time.NewTicker(time.Minute)

	go func() {
		for {
			select {
			case <-ticker.C:
				e.cleanup()
			case <-e.stopChan:
				ticker.Stop()
				return
			}
		}
	}()
}

// Process 处理一个音频块，返回零或一个边界事件。
//
// pcm 必须是非空的 little-endian 16-bit PCM 数据。
// 迟滞规则：
//   - 静音阶段概率达到阈值 → 进入语音阶段，发出 start 事件；
//   - 语音阶段概率达到阈值 → 保持语音，静音累计清零；
//   - 语音阶段概率低于阈值 → 累计静音时长，
//     累计达到 MinSilenceMs 才确认结束并发出 end 事件；
//   - 静音阶段概率低于阈值 → 保持静音。
//
// 打分器失败时返回 ErrScorerUnavailable，会话状态保持不变。
func (e *Engine) Process(sessionID string, pcm []byte, overrides ...SessionConfig) (Event, error) {
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	if len(pcm) == 0 || len(pcm)%2 != 0 {
		return Event{}, fmt.Errorf("%w: payload length %d", ErrInvalidAudio, len(pcm))
	}

	s, err := e.getOrCreate(sessionID, overrides...)
	if err != nil {
		return Event{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	samples := pcmToFloat32(pcm)
	prob, err := s.scorer.Score(samples)
	if err != nil {
		// 状态不动，调用方可以原样重试
		return Event{}, fmt.Errorf("%w: %v", ErrScorerUnavailable, err)
	}

	chunkSamples := int64(len(samples))
	ev := Event{Type: EventNone}

	switch {
	case s.phase == PhaseSilence && prob >= s.cfg.Threshold:
		s.phase = PhaseSpeech
		s.silenceRunSamples = 0
		ev = Event{Type: EventStart, TimestampMs: s.samplesToMs(s.sampleCursor)}
		e.logger.Debug("speech started",
			zap.String("session_id", sessionID),
			zap.Float64("prob", prob),
			zap.Int64("timestamp_ms", ev.TimestampMs))

	case s.phase == PhaseSpeech && prob >= s.cfg.Threshold:
		s.silenceRunSamples = 0

	case s.phase == PhaseSpeech && prob < s.cfg.Threshold:
		s.silenceRunSamples += chunkSamples
		if s.silenceRunSamples >= s.minSilenceSamples() {
			// 边界时刻 = 静音段起点 = 处理完本块后的游标 - 累计静音
			boundary := s.sampleCursor + chunkSamples - s.silenceRunSamples
			s.phase = PhaseSilence
			s.silenceRunSamples = 0
			ev = Event{Type: EventEnd, TimestampMs: s.samplesToMs(boundary)}
			e.logger.Debug("speech ended",
				zap.String("session_id", sessionID),
				zap.Float64("prob", prob),
				zap.Int64("timestamp_ms", ev.TimestampMs))
		}
	}

	s.sampleCursor += chunkSamples
	s.lastActivity = time.Now()

	return ev, nil
}

// Reset 把会话恢复到初始状态（静音、累计清零、游标归零），
// 保留已配置的阈值参数。未知会话是静默成功的空操作，重复调用幂等。
func (e *Engine) Reset(sessionID string) {
	if sessionID == "" {
		sessionID = DefaultSessionID
	}

	e.mu.RLock()
	s, exists := e.sessions[sessionID]
	e.mu.RUnlock()
	if !exists {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseSilence
	s.silenceRunSamples = 0
	s.sampleCursor = 0
	s.scorer.Reset()
	s.lastActivity = time.Now()

	e.logger.Debug("session reset", zap.String("session_id", sessionID))
}

// Sessions 返回当前活跃的会话标识
func (e *Engine) Sessions() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ids := make([]string, 0, len(e.sessions))
	for id := range e.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Close 停止清理 goroutine 并释放持有资源的打分器
func (e *Engine) Close() error {
	e.stopOnce.Do(func() {
		close(e.stopChan)
	})

	e.mu.Lock()
	defer e.mu.Unlock()
	for id, s := range e.sessions {
		e.closeScorer(s)
		delete(e.sessions, id)
	}
	return nil
}

// getOrCreate 获取或惰性创建会话，首次引用时按默认值初始化
func (e *Engine) getOrCreate(sessionID string, overrides ...SessionConfig) (*session, error) {
	e.mu.RLock()
	s, exists := e.sessions[sessionID]
	e.mu.RUnlock()
	if exists {
		return s, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if s, exists = e.sessions[sessionID]; exists {
		return s, nil
	}

	cfg := e.defaults
	if len(overrides) > 0 && overrides[0].Threshold > 0 {
		cfg.Threshold = overrides[0].Threshold
	}

	scorer, err := e.newScorer(cfg.SamplingRate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScorerUnavailable, err)
	}

	s = &session{
		cfg:          cfg,
		scorer:       scorer,
		phase:        PhaseSilence,
		lastActivity: time.Now(),
	}
	e.sessions[sessionID] = s
	e.logger.Debug("session created",
		zap.String("session_id", sessionID),
		zap.Float64("threshold", cfg.Threshold),
		zap.Int("sampling_rate", cfg.SamplingRate),
		zap.Int("min_silence_ms", cfg.MinSilenceMs))

	return s, nil
}

// cleanup 删除超过 TTL 未活动的会话
func (e *Engine) cleanup() {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	expired := 0
	for id, s := range e.sessions {
		s.mu.Lock()
		idle := now.Sub(s.lastActivity)
		s.mu.Unlock()

		if idle > e.ttl {
			e.closeScorer(s)
			delete(e.sessions, id)
			expired++
			e.logger.Debug("expired session cleaned up", zap.String("session_id", id))
		}
	}

	if expired > 0 {
		e.logger.Info("session cleanup completed", zap.Int("expired_count", expired))
	}
}

func (e *Engine) closeScorer(s *session) {
	if closer, ok := s.scorer.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}
