package synthesizer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEdgeSynthesizerValidation(t *testing.T) {
	_, err := NewEdgeSynthesizer(nil)
	assert.Error(t, err)

	_, err = NewEdgeSynthesizer(&EdgeConfig{Command: "edge-tts"})
	assert.Error(t, err, "missing default voice")

	_, err = NewEdgeSynthesizer(&EdgeConfig{DefaultVoice: "zh-CN-XiaoxiaoNeural"})
	assert.Error(t, err, "missing command")
}

func TestBuildArgs(t *testing.T) {
	s, err := NewEdgeSynthesizer(NewEdgeConfig("edge-tts", "zh-CN-XiaoxiaoNeural"))
	require.NoError(t, err)

	args, err := s.buildArgs("你好", "zh-CN-YunxiNeural", "/tmp/out.wav")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"edge-tts",
		"--voice", "zh-CN-YunxiNeural",
		"--text", "你好",
		"--write-media", "/tmp/out.wav",
	}, args)
}

func TestSynthesizeEmptyText(t *testing.T) {
	s, err := NewEdgeSynthesizer(NewEdgeConfig("edge-tts", "zh-CN-XiaoxiaoNeural"))
	require.NoError(t, err)

	_, err = s.Synthesize(context.Background(), "", "")
	assert.Error(t, err)
}

// 用脚本模拟 edge-tts：把文本写进输出文件
func fakeTTSScript(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	script := filepath.Join(dir, "fake-tts.sh")
	body := `#!/bin/sh
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "--write-media" ]; then out="$2"; fi
  shift
done
printf 'RIFFfake-wav-data' > "$out"
`
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))
	return script
}

func TestSynthesizeWithFakeCommand(t *testing.T) {
	cfg := NewEdgeConfig(fakeTTSScript(t), "zh-CN-XiaoxiaoNeural")
	cfg.OutputDir = t.TempDir()
	s, err := NewEdgeSynthesizer(cfg)
	require.NoError(t, err)

	data, err := s.Synthesize(context.Background(), "测试文本", "")
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFFfake-wav-data"), data)

	// 临时文件合成后即被删除
	entries, err := os.ReadDir(cfg.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSynthesizeUsesCache(t *testing.T) {
	script := fakeTTSScript(t)
	cfg := NewEdgeConfig(script, "zh-CN-XiaoxiaoNeural")
	cfg.OutputDir = t.TempDir()
	s, err := NewEdgeSynthesizer(cfg)
	require.NoError(t, err)

	first, err := s.Synthesize(context.Background(), "缓存测试", "")
	require.NoError(t, err)

	// 删除脚本后第二次调用仍然成功，说明命中缓存
	require.NoError(t, os.Remove(script))
	second, err := s.Synthesize(context.Background(), "缓存测试", "")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAudioCacheKeyedByVoiceAndText(t *testing.T) {
	c := newAudioCache(time.Minute)
	c.put("voiceA", "hello", []byte("a"))

	_, ok := c.get("voiceB", "hello")
	assert.False(t, ok)
	_, ok = c.get("voiceA", "world")
	assert.False(t, ok)

	data, ok := c.get("voiceA", "hello")
	assert.True(t, ok)
	assert.Equal(t, []byte("a"), data)
}
