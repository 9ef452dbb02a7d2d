// Package ai 通用的 chat-completion 客户端，三个服务商只在配置上不同
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"quiz_bank_backend/internal/config"
	"quiz_bank_backend/pkg/monitoring"
	"quiz_bank_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/semaphore"
)

var ErrEmptyResponse = errors.New("ai response contains no choices")

// ProviderConfig 单个服务商的请求参数
type ProviderConfig struct {
	Name           string
	Endpoint       string
	Model          string
	TokenField     string // max_tokens、max_completion_tokens 等
	MaxTokens      int
	AuthHeader     string
	AuthScheme     string
	APIKey         string
	Timeout        time.Duration
	MaxConcurrency int
}

// FromConfig 把配置文件中的服务商配置转换为客户端配置
func FromConfig(name string, pc config.ProviderConfig) ProviderConfig {
	timeout := time.Duration(pc.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	header := pc.AuthHeader
	if header == "" {
		header = "Authorization"
	}
	return ProviderConfig{
		Name:           name,
		Endpoint:       pc.Endpoint,
		Model:          pc.Model,
		TokenField:     pc.TokenField,
		MaxTokens:      pc.MaxTokens,
		AuthHeader:     header,
		AuthScheme:     pc.AuthScheme,
		APIKey:         pc.APIKey,
		Timeout:        timeout,
		MaxConcurrency: pc.MaxConcurrency,
	}
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type Client struct {
	cfg  ProviderConfig
	http *http.Client
	sem  *semaphore.Weighted
}

func NewClient(cfg ProviderConfig) *Client {
	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.MaxConcurrency > 0 {
		c.sem = semaphore.NewWeighted(int64(cfg.MaxConcurrency))
	}
	return c
}

func (c *Client) Name() string { return c.cfg.Name }

func (c *Client) Config() ProviderConfig { return c.cfg }

// Complete 发送一次对话请求，返回第一条回复并去掉 markdown 强调符号
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	if c.sem != nil {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return "", err
		}
		defer c.sem.Release(1)
	}

	ctx, span := tracing.StartSpan(ctx, "ai.complete",
		attribute.String("ai.provider", c.cfg.Name),
		attribute.String("ai.model", c.cfg.Model),
	)
	start := time.Now()
	text, err := c.do(ctx, messages)
	monitoring.ObserveAICall(c.cfg.Name, start, err)
	tracing.EndSpan(span, err)
	if err != nil {
		return "", err
	}
	return StripMarkdown(text), nil
}

func (c *Client) do(ctx context.Context, messages []Message) (string, error) {
	body := map[string]interface{}{
		"model":    c.cfg.Model,
		"messages": messages,
	}
	if c.cfg.TokenField != "" && c.cfg.MaxTokens > 0 {
		body[c.cfg.TokenField] = c.cfg.MaxTokens
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set(c.cfg.AuthHeader, strings.TrimSpace(c.cfg.AuthScheme+" "+c.cfg.APIKey))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s API error (status %d): %s", c.cfg.Name, resp.StatusCode, truncate(string(raw), 300))
	}

	var out completionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode %s response: %w", c.cfg.Name, err)
	}
	if out.Error != nil && out.Error.Message != "" {
		return "", fmt.Errorf("%s API error: %s", c.cfg.Name, out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return out.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
