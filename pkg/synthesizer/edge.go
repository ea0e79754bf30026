package synthesizer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-shellwords"
	"github.com/sirupsen/logrus"
)

// EdgeConfig Edge TTS 配置
type EdgeConfig struct {
	Command      string        `json:"command"`      // 合成命令，可带参数
	DefaultVoice string        `json:"defaultVoice"` // 默认发音人
	OutputDir    string        `json:"outputDir"`    // 临时文件目录，空则用系统临时目录
	EnableCache  bool          `json:"enableCache"`  // 是否启用缓存
	CacheExpiry  time.Duration `json:"cacheExpiry"`  // 缓存过期时间
}

// NewEdgeConfig 创建默认配置
func NewEdgeConfig(command, defaultVoice string) *EdgeConfig {
	return &EdgeConfig{
		Command:      command,
		DefaultVoice: defaultVoice,
		EnableCache:  true,
		CacheExpiry:  10 * time.Minute,
	}
}

// EdgeSynthesizer 通过 edge-tts 命令行完成合成的服务。
// 音频先写到临时文件，读出后即删除，失败的删除只记日志。
type EdgeSynthesizer struct {
	config *EdgeConfig
	cache  *audioCache
	logger *logrus.Entry
}

// NewEdgeSynthesizer 创建 Edge TTS 合成器
func NewEdgeSynthesizer(config *EdgeConfig) (*EdgeSynthesizer, error) {
	if config == nil || config.Command == "" {
		return nil, fmt.Errorf("synthesizer: command is required")
	}
	if config.DefaultVoice == "" {
		return nil, fmt.Errorf("synthesizer: default voice is required")
	}

	s := &EdgeSynthesizer{
		config: config,
		logger: logrus.WithField("component", "edge_synthesizer"),
	}
	if config.EnableCache {
		s.cache = newAudioCache(config.CacheExpiry)
	}
	return s, nil
}

// Synthesize 实现 SynthesizeService
func (s *EdgeSynthesizer) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("synthesizer: text is empty")
	}
	if voice == "" {
		voice = s.config.DefaultVoice
	}

	if s.cache != nil {
		if data, ok := s.cache.get(voice, text); ok {
			s.logger.WithField("voice", voice).Debug("缓存命中")
			return data, nil
		}
	}

	outPath := s.tempPath()
	defer s.remove(outPath)

	args, err := s.buildArgs(text, voice, outPath)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		s.logger.WithError(err).WithField("stderr", stderr.String()).Error("合成命令执行失败")
		return nil, fmt.Errorf("synthesizer: command failed: %w", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("synthesizer: read output: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("synthesizer: empty output for voice %s", voice)
	}

	if s.cache != nil {
		s.cache.put(voice, text, data)
	}

	s.logger.WithFields(logrus.Fields{
		"voice":   voice,
		"bytes":   len(data),
		"elapsed": time.Since(start).String(),
	}).Info("合成完成")

	return data, nil
}

// buildArgs 拼装 edge-tts 的 argv
func (s *EdgeSynthesizer) buildArgs(text, voice, outPath string) ([]string, error) {
	args, err := shellwords.Parse(s.config.Command)
	if err != nil {
		return nil, fmt.Errorf("synthesizer: bad command %q: %w", s.config.Command, err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("synthesizer: empty command")
	}
	return append(args,
		"--voice", voice,
		"--text", text,
		"--write-media", outPath,
	), nil
}

// tempPath 生成唯一的临时输出路径
func (s *EdgeSynthesizer) tempPath() string {
	dir := s.config.OutputDir
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, fmt.Sprintf("tts_%s.wav", uuid.NewString()))
}

// remove 尽力删除临时文件
func (s *EdgeSynthesizer) remove(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.WithError(err).WithField("path", path).Warn("临时文件删除失败")
	}
}
