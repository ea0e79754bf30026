package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/code-100-precent/LingSpeech/pkg/config"
	"github.com/code-100-precent/LingSpeech/pkg/recognizer"
	"github.com/code-100-precent/LingSpeech/pkg/vad"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	cfg, _ := config.Load()
	return cfg
}

// --- ASR ---

type fakeTranscriber struct {
	result *recognizer.Result
	err    error
	path   string
}

func (f *fakeTranscriber) Recognize(_ context.Context, audioPath string) (*recognizer.Result, error) {
	f.path = audioPath
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newASRRouter(svc recognizer.TranscribeService) *gin.Engine {
	r := gin.New()
	NewASRHandlers(testConfig(), svc).Register(r)
	return r
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestRecognizeMissingFile(t *testing.T) {
	r := newASRRouter(&fakeTranscriber{})

	req := httptest.NewRequest(http.MethodPost, "/recognize", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestRecognizeSuccess(t *testing.T) {
	svc := &fakeTranscriber{result: &recognizer.Result{Text: "你好", Language: "zh"}}
	r := newASRRouter(svc)

	body, contentType := multipartBody(t, "file", "sample.wav", []byte("RIFFdata"))
	req := httptest.NewRequest(http.MethodPost, "/recognize", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "你好", resp["text"])
	assert.Equal(t, "zh", resp["language"])
	assert.NotEmpty(t, svc.path)
}

func TestRecognizeModelFailure(t *testing.T) {
	r := newASRRouter(&fakeTranscriber{err: errors.New("model exploded")})

	body, contentType := multipartBody(t, "file", "sample.wav", []byte("RIFFdata"))
	req := httptest.NewRequest(http.MethodPost, "/recognize", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "model exploded")
}

// --- TTS ---

type fakeSynthesizer struct {
	audio []byte
	err   error
	voice string
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, _, voice string) ([]byte, error) {
	f.voice = voice
	if f.err != nil {
		return nil, f.err
	}
	return f.audio, nil
}

func newTTSRouter(svc *fakeSynthesizer) *gin.Engine {
	r := gin.New()
	NewTTSHandlers(testConfig(), svc).Register(r)
	return r
}

func postJSON(r *gin.Engine, path string, payload any) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestSynthesizeEmptyText(t *testing.T) {
	r := newTTSRouter(&fakeSynthesizer{audio: []byte("RIFF")})

	rec := postJSON(r, "/tts", gin.H{"text": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(r, "/tts", gin.H{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSynthesizeSuccess(t *testing.T) {
	svc := &fakeSynthesizer{audio: []byte("RIFFwav-bytes")}
	r := newTTSRouter(svc)

	rec := postJSON(r, "/tts", gin.H{"text": "hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/wav", rec.Header().Get("Content-Type"))
	assert.Equal(t, []byte("RIFFwav-bytes"), rec.Body.Bytes())
}

func TestSynthesizeDefaultVoice(t *testing.T) {
	svc := &fakeSynthesizer{audio: []byte("RIFF")}
	r := newTTSRouter(svc)

	postJSON(r, "/tts", gin.H{"text": "hi"})
	assert.Equal(t, testConfig().TTS.DefaultVoice, svc.voice)

	postJSON(r, "/tts", gin.H{"text": "hi", "voice": "zh-CN-YunxiNeural"})
	assert.Equal(t, "zh-CN-YunxiNeural", svc.voice)
}

func TestSynthesizeBackendFailure(t *testing.T) {
	r := newTTSRouter(&fakeSynthesizer{err: errors.New("edge-tts not found")})

	rec := postJSON(r, "/tts", gin.H{"text": "hello"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "edge-tts not found")
}

// --- VAD ---

type scriptScorer struct {
	probs []float64
	i     int
	err   error
}

func (s *scriptScorer) Score(_ []float32) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	idx := s.i
	if idx >= len(s.probs) {
		idx = len(s.probs) - 1
	}
	s.i++
	return s.probs[idx], nil
}

func (s *scriptScorer) Reset() {}

func newVADRouter(scorer vad.Scorer) *gin.Engine {
	engine := vad.NewEngine(vad.SessionConfig{
		Threshold:    0.5,
		SamplingRate: 16000,
		MinSilenceMs: 500,
	}, func(int) (vad.Scorer, error) { return scorer, nil }, zap.NewNop())

	r := gin.New()
	NewVADHandlers(testConfig(), engine).Register(r)
	return r
}

func pcmBase64(ms int) string {
	return base64.StdEncoding.EncodeToString(make([]byte, ms*16000/1000*2))
}

func TestDetectMissingAudioData(t *testing.T) {
	r := newVADRouter(&scriptScorer{})

	rec := postJSON(r, "/vad", gin.H{"session_id": "s1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDetectBadBase64(t *testing.T) {
	r := newVADRouter(&scriptScorer{})

	rec := postJSON(r, "/vad", gin.H{"audio_data": "not-base64!!!"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDetectOddLengthPayload(t *testing.T) {
	r := newVADRouter(&scriptScorer{})

	rec := postJSON(r, "/vad", gin.H{
		"audio_data": base64.StdEncoding.EncodeToString([]byte{0x01}),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDetectEventFlow(t *testing.T) {
	r := newVADRouter(&scriptScorer{probs: []float64{0.8, 0.9, 0.1, 0.1}})
	chunk := pcmBase64(300)

	// 语音开始
	rec := postJSON(r, "/vad", gin.H{"audio_data": chunk, "session_id": "s1"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "start", resp["status"])
	assert.Equal(t, float64(0), resp["timestamp"])

	// 无事件时 status 为 null 且没有 timestamp
	rec = postJSON(r, "/vad", gin.H{"audio_data": chunk, "session_id": "s1"})
	resp = map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp["status"])
	_, hasTimestamp := resp["timestamp"]
	assert.False(t, hasTimestamp)

	// 静音累计 300ms，尚未触发
	rec = postJSON(r, "/vad", gin.H{"audio_data": chunk, "session_id": "s1"})
	resp = map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp["status"])

	// 累计 600ms，语音结束于静音起点
	rec = postJSON(r, "/vad", gin.H{"audio_data": chunk, "session_id": "s1"})
	resp = map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "end", resp["status"])
	assert.Equal(t, float64(600), resp["timestamp"])
}

func TestDetectScorerFailure(t *testing.T) {
	r := newVADRouter(&scriptScorer{err: errors.New("model not loaded")})

	rec := postJSON(r, "/vad", gin.H{"audio_data": pcmBase64(100)})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "model not loaded")
}

func TestResetEndpoint(t *testing.T) {
	r := newVADRouter(&scriptScorer{probs: []float64{0.9}})
	chunk := pcmBase64(300)

	postJSON(r, "/vad", gin.H{"audio_data": chunk, "session_id": "s1"})

	rec := postJSON(r, "/reset", gin.H{"session_id": "s1"})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "reset", resp["status"])

	// reset 后重新产生 start@0
	rec = postJSON(r, "/vad", gin.H{"audio_data": chunk, "session_id": "s1"})
	var ev map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ev))
	assert.Equal(t, "start", ev["status"])
	assert.Equal(t, float64(0), ev["timestamp"])
}

func TestResetEmptyBody(t *testing.T) {
	r := newVADRouter(&scriptScorer{})

	req := httptest.NewRequest(http.MethodPost, "/reset", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// --- Health ---

func TestHealthEndpoints(t *testing.T) {
	cases := []struct {
		service string
		build   func() *gin.Engine
	}{
		{"asr", func() *gin.Engine { return newASRRouter(&fakeTranscriber{}) }},
		{"tts", func() *gin.Engine { return newTTSRouter(&fakeSynthesizer{}) }},
		{"vad", func() *gin.Engine { return newVADRouter(&scriptScorer{}) }},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		tc.build().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, tc.service)
		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "healthy", resp["status"])
		assert.Equal(t, tc.service, resp["service"])
	}
}
