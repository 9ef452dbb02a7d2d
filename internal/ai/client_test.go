package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"quiz_bank_backend/internal/config"
	"quiz_bank_backend/internal/model"
	"quiz_bank_backend/internal/util"
)

func TestStripMarkdown(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"## 解析\n**答案**是 *B*，因为 2*3=6", "解析\n答案是 B，因为 2*3=6"},
		{"~~错误~~ __正确__", "错误 正确"},
		{"  纯文本  ", "纯文本"},
		{"2*3*4 = 24", "2*3*4 = 24"},
		{"答案是*B*，a*b*c 不变", "答案是B，a*b*c 不变"},
		{"*甲* *乙*", "甲 乙"},
	}
	for _, tc := range cases {
		if got := StripMarkdown(tc.in); got != tc.want {
			t.Errorf("StripMarkdown(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestClientComplete(t *testing.T) {
	var gotBody map[string]interface{}
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"**选 B**"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(ProviderConfig{
		Name:       ProviderBaidu,
		Endpoint:   srv.URL,
		Model:      "ernie",
		TokenField: "max_completion_tokens",
		MaxTokens:  512,
		AuthHeader: "Authorization",
		AuthScheme: "Bearer",
		APIKey:     "secret",
		Timeout:    5 * time.Second,
	})

	text, err := c.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != "选 B" {
		t.Errorf("text = %q", text)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotBody["model"] != "ernie" {
		t.Errorf("model = %v", gotBody["model"])
	}
	if v, ok := gotBody["max_completion_tokens"].(float64); !ok || v != 512 {
		t.Errorf("token field missing: %v", gotBody)
	}
	if _, ok := gotBody["max_tokens"]; ok {
		t.Errorf("unexpected max_tokens field")
	}
}

func TestClientErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"http status", http.StatusInternalServerError, `boom`},
		{"empty choices", http.StatusOK, `{"choices":[]}`},
		{"api error", http.StatusOK, `{"error":{"message":"quota"}}`},
		{"bad json", http.StatusOK, `not json`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := NewClient(ProviderConfig{Name: "test", Endpoint: srv.URL, Timeout: time.Second})
			if _, err := c.Complete(context.Background(), nil); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestClientConcurrencyLimit(t *testing.T) {
	var (
		inFlight int32
		peak     int32
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(ProviderConfig{Name: ProviderSpark, Endpoint: srv.URL, Timeout: 5 * time.Second, MaxConcurrency: 2})

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Complete(context.Background(), nil); err != nil {
				t.Errorf("Complete: %v", err)
			}
		}()
	}
	wg.Wait()

	if peak > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak)
	}
}

func TestRegistryReloadKeepsLimiter(t *testing.T) {
	cfg := config.AIConfig{
		Spark: config.ProviderConfig{Endpoint: "http://example.invalid", MaxConcurrency: 2},
	}
	r := NewRegistry(cfg)
	before, _ := r.Get(ProviderSpark)

	cfg.Spark.Model = "generalv4"
	r.Reload(cfg)
	after, _ := r.Get(ProviderSpark)
	if before == after {
		t.Fatal("reload should build a new client")
	}
	if after.(*Client).sem == nil || after.(*Client).sem != before.(*Client).sem {
		t.Fatal("unchanged concurrency limit should keep the in-flight semaphore")
	}
	if after.(*Client).Config().Model != "generalv4" {
		t.Errorf("model = %q", after.(*Client).Config().Model)
	}

	// 持有旧客户端的两个名额时，新客户端拿不到第三个
	ctx := context.Background()
	before.(*Client).sem.Acquire(ctx, 2)
	if after.(*Client).sem.TryAcquire(1) {
		t.Error("limit exceeded across reload")
	}
	before.(*Client).sem.Release(2)

	cfg.Spark.MaxConcurrency = 4
	r.Reload(cfg)
	resized, _ := r.Get(ProviderSpark)
	if resized.(*Client).sem == before.(*Client).sem {
		t.Error("changed limit should get a new semaphore")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(config.AIConfig{
		Spark: config.ProviderConfig{Endpoint: "http://example.invalid", MaxConcurrency: 2},
	})
	names := r.Names()
	if len(names) != 3 || names[0] != ProviderBaidu || names[1] != ProviderDeepSeek || names[2] != ProviderSpark {
		t.Fatalf("names = %v", names)
	}
	if _, err := r.Get("openai"); !errors.Is(err, util.ErrUnknownProvider) {
		t.Errorf("expected ErrUnknownProvider, got %v", err)
	}
	c, err := r.Get(ProviderSpark)
	if err != nil {
		t.Fatal(err)
	}
	if c.(*Client).Config().MaxConcurrency != 2 {
		t.Errorf("spark concurrency not applied")
	}
}

func TestExplainMessages(t *testing.T) {
	q := &model.Question{Content: "1+1=?", Type: model.QuestionSingle, Options: []string{"1", "2"}, Answer: "B"}
	msgs := ExplainMessages(q)
	if len(msgs) != 2 || msgs[0].Role != "system" {
		t.Fatalf("messages = %+v", msgs)
	}
	want := "【单选题】1+1=?\nA. 1\nB. 2\n正确答案：B\n请给出详细解析。"
	if msgs[1].Content != want {
		t.Errorf("user prompt = %q", msgs[1].Content)
	}
}
