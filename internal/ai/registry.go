package ai

import (
	"context"
	"sort"
	"sync"

	"quiz_bank_backend/internal/config"
	"quiz_bank_backend/internal/util"
)

const (
	ProviderDeepSeek = "deepseek"
	ProviderSpark    = "spark"
	ProviderBaidu    = "baidu"
)

// Completer 便于在服务层测试中替换网络调用
type Completer interface {
	Name() string
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Registry 按名称查找服务商客户端，配置热更新时整体替换
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Completer
}

func NewRegistry(cfg config.AIConfig) *Registry {
	r := &Registry{}
	r.Reload(cfg)
	return r
}

// NewStaticRegistry 直接使用给定的客户端
func NewStaticRegistry(clients ...Completer) *Registry {
	m := make(map[string]Completer, len(clients))
	for _, c := range clients {
		m[c.Name()] = c
	}
	return &Registry{clients: m}
}

// Reload 正在进行的请求继续使用旧客户端；并发上限未变时新旧客户端共用同一个信号量
func (r *Registry) Reload(cfg config.AIConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients = map[string]Completer{
		ProviderDeepSeek: r.rebuild(FromConfig(ProviderDeepSeek, cfg.DeepSeek)),
		ProviderSpark:    r.rebuild(FromConfig(ProviderSpark, cfg.Spark)),
		ProviderBaidu:    r.rebuild(FromConfig(ProviderBaidu, cfg.Baidu)),
	}
}

func (r *Registry) rebuild(cfg ProviderConfig) *Client {
	c := NewClient(cfg)
	if prev, ok := r.clients[cfg.Name].(*Client); ok && prev.cfg.MaxConcurrency == cfg.MaxConcurrency {
		c.sem = prev.sem
	}
	return c
}

func (r *Registry) Get(name string) (Completer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[name]
	if !ok {
		return nil, util.ErrUnknownProvider
	}
	return c, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
