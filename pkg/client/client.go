package client

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Client 语音服务客户端，按 baseURL 访问任一服务
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// RecognizeResponse 识别响应
type RecognizeResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// DetectResponse VAD 检测响应。Status 为空表示本块无事件。
type DetectResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// errorBody 服务端错误响应体
type errorBody struct {
	Error string `json:"error"`
}

// NewClient 创建客户端
func NewClient(baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// SetTimeout 设置 HTTP 超时时间
func (c *Client) SetTimeout(timeout time.Duration) {
	c.httpClient.Timeout = timeout
}

// HealthCheck 健康检查，返回服务名
func (c *Client) HealthCheck() (*HealthResponse, error) {
	resp, err := c.httpClient.Get(c.baseURL + "/health")
	if err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.asError(resp)
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("decode health response: %w", err)
	}
	return &health, nil
}

// Recognize 上传 WAV 文件并返回识别结果
func (c *Client) Recognize(audioPath string) (*RecognizeResponse, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, fmt.Errorf("read audio file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Post(c.baseURL+"/recognize", w.FormDataContentType(), &buf)
	if err != nil {
		return nil, fmt.Errorf("recognize request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.asError(resp)
	}

	var result RecognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode recognize response: %w", err)
	}
	return &result, nil
}

// Synthesize 合成语音并返回 WAV 字节流。voice 为空时使用服务端默认发音人。
func (c *Client) Synthesize(text, voice string) ([]byte, error) {
	payload := map[string]string{"text": text}
	if voice != "" {
		payload["voice"] = voice
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Post(c.baseURL+"/tts", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.asError(resp)
	}
	return io.ReadAll(resp.Body)
}

// Detect 提交一块 16-bit PCM 音频并返回边界事件
func (c *Client) Detect(sessionID string, pcm []byte) (*DetectResponse, error) {
	payload := map[string]string{
		"audio_data": base64.StdEncoding.EncodeToString(pcm),
	}
	if sessionID != "" {
		payload["session_id"] = sessionID
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Post(c.baseURL+"/vad", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("vad request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.asError(resp)
	}

	var result DetectResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode vad response: %w", err)
	}
	return &result, nil
}

// Reset 重置指定会话，sessionID 为空时重置默认会话
func (c *Client) Reset(sessionID string) error {
	payload := map[string]string{}
	if sessionID != "" {
		payload["session_id"] = sessionID
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Post(c.baseURL+"/reset", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("reset request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.asError(resp)
	}
	return nil
}

// asError 把非 200 响应转成错误
func (c *Client) asError(resp *http.Response) error {
	data, _ := io.ReadAll(resp.Body)
	var body errorBody
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		return fmt.Errorf("service error (status %d): %s", resp.StatusCode, body.Error)
	}
	return fmt.Errorf("service error (status %d): %s", resp.StatusCode, string(data))
}
