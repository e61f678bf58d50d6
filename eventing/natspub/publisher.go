// Package natspub 基于 NATS 的领域事件发布实现
package natspub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/nats-io/nats.go"

	"dddkit/eventing"
	"dddkit/logging"
)

// Config 发布器配置
type Config struct {
	URL           string
	SubjectPrefix string
	Logger        logging.Logger

	// 可选：复用已有连接（调用方负责其生命周期）
	Conn *nats.Conn
}

// Publisher 实现 eventing.IPublisher，将事件以 JSON 发布到
// "<SubjectPrefix><事件名>" 主题。
type Publisher struct {
	cfg      Config
	logger   logging.Logger
	conn     *nats.Conn
	ownsConn bool

	mu     sync.RWMutex
	closed bool
}

// NewPublisher 创建 NATS 发布器
func NewPublisher(cfg Config) *Publisher {
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "domain.events."
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetLogger().WithFields(logging.String("component", "eventing.natspub"))
	}
	return &Publisher{cfg: cfg, logger: cfg.Logger, conn: cfg.Conn}
}

// Connect 建立连接（当未通过 Config.Conn 注入时）
func (p *Publisher) Connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		return nil
	}
	url := p.cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	conn, err := nats.Connect(url)
	if err != nil {
		return err
	}
	p.conn = conn
	p.ownsConn = true
	return nil
}

// Publish 实现 eventing.IPublisher
func (p *Publisher) Publish(ctx context.Context, events ...eventing.IDomainEvent) error {
	p.mu.RLock()
	conn := p.conn
	closed := p.closed
	p.mu.RUnlock()
	if closed || conn == nil {
		return errors.New("natspub: publisher not connected")
	}

	for _, evt := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := json.Marshal(evt)
		if err != nil {
			return err
		}
		subject := p.cfg.SubjectPrefix + evt.GetEventName()
		if err := conn.Publish(subject, data); err != nil {
			return err
		}
		p.logger.Debug(ctx, "领域事件已发布",
			logging.String("subject", subject),
			logging.String("event_id", evt.GetEventID()),
		)
	}
	return conn.FlushWithContext(ctx)
}

// Close 关闭发布器；仅关闭自建连接
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.ownsConn && p.conn != nil {
		p.conn.Close()
	}
	return nil
}
