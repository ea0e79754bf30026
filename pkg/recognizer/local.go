package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/mattn/go-shellwords"
	"github.com/sirupsen/logrus"
	"github.com/youpy/go-wav"
)

// LocalConfig 本地命令行识别器配置
type LocalConfig struct {
	Command  string `json:"command"`  // 识别命令，可带参数
	ModelDir string `json:"modelDir"` // 模型目录
	Device   string `json:"device"`   // 推理设备 cpu/cuda
	Language string `json:"language"` // 语言提示，auto 为自动检测
	UseITN   bool   `json:"useITN"`   // 是否启用逆文本规整
}

// NewLocalConfig 创建默认配置
func NewLocalConfig(command, modelDir string) *LocalConfig {
	return &LocalConfig{
		Command:  command,
		ModelDir: modelDir,
		Device:   "cpu",
		Language: "auto",
		UseITN:   true,
	}
}

// LocalRecognizer 通过外部命令完成识别的本地服务。
// 命令从 stdout 输出 JSON：{"text": "...", "language": "..."}。
type LocalRecognizer struct {
	config *LocalConfig
	logger *logrus.Entry
}

// NewLocalRecognizer 创建本地识别器
func NewLocalRecognizer(config *LocalConfig) (*LocalRecognizer, error) {
	if config == nil || config.Command == "" {
		return nil, fmt.Errorf("recognizer: command is required")
	}
	return &LocalRecognizer{
		config: config,
		logger: logrus.WithField("component", "local_recognizer"),
	}, nil
}

// rawOutput 识别命令的原始输出
type rawOutput struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Recognize 实现 TranscribeService
func (r *LocalRecognizer) Recognize(ctx context.Context, audioPath string) (*Result, error) {
	if audioPath == "" {
		return nil, fmt.Errorf("recognizer: audio path is empty")
	}
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("recognizer: audio file not accessible: %w", err)
	}

	r.logAudioInfo(audioPath)

	args, err := r.buildArgs(audioPath)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		r.logger.WithError(err).WithField("stderr", stderr.String()).Error("识别命令执行失败")
		return nil, fmt.Errorf("recognizer: command failed: %w", err)
	}

	var raw rawOutput
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &raw); err != nil {
		return nil, fmt.Errorf("recognizer: invalid command output: %w", err)
	}

	text, lang := Postprocess(raw.Text)
	if raw.Language != "" {
		lang = raw.Language
	}

	r.logger.WithFields(logrus.Fields{
		"language": lang,
		"elapsed":  time.Since(start).String(),
		"chars":    len([]rune(text)),
	}).Info("识别完成")

	return &Result{Text: text, Language: lang}, nil
}

// buildArgs 将命令模板与固定参数拼成 argv
func (r *LocalRecognizer) buildArgs(audioPath string) ([]string, error) {
	args, err := shellwords.Parse(r.config.Command)
	if err != nil {
		return nil, fmt.Errorf("recognizer: bad command %q: %w", r.config.Command, err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("recognizer: empty command")
	}
	if r.config.ModelDir != "" {
		args = append(args, "--model", r.config.ModelDir)
	}
	if r.config.Device != "" {
		args = append(args, "--device", r.config.Device)
	}
	if r.config.Language != "" {
		args = append(args, "--language", r.config.Language)
	}
	if r.config.UseITN {
		args = append(args, "--use-itn")
	}
	return append(args, audioPath), nil
}

// logAudioInfo 尽力读取 WAV 头用于日志，读不到不影响识别
func (r *LocalRecognizer) logAudioInfo(audioPath string) {
	// go-riff 遇到截断的文件头会 panic 而不是返回错误
	defer func() {
		if p := recover(); p != nil {
			r.logger.WithField("reason", p).Debug("音频头解析失败")
		}
	}()

	f, err := os.Open(audioPath)
	if err != nil {
		return
	}
	defer f.Close()

	reader := wav.NewReader(f)
	format, err := reader.Format()
	if err != nil {
		return
	}
	r.logger.WithFields(logrus.Fields{
		"sample_rate": format.SampleRate,
		"channels":    format.NumChannels,
		"bits":        format.BitsPerSample,
	}).Debug("音频参数")
}
