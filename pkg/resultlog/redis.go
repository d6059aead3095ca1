package resultlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ruslano69/tdtp-bulk/pkg/bulk"
	"github.com/ruslano69/tdtp-bulk/pkg/config"
)

// ErrNoState возвращается State, если результат еще не публиковался или ключ истек.
var ErrNoState = errors.New("no published state")

// LoadResult представляет состояние загрузки, публикуемое в Redis
// после завершения (успешного или с ошибкой).
//
// Redis-ключи:
//
//	SET  tdtp:bulk:<name>:state  <JSON>  EX <ttl>  : для GET-запросов оркестратора
//	PUB  tdtp:bulk:<name>                          : для event-driven маршрутизации
type LoadResult struct {
	ResultName string    `json:"result_name"`
	Status     string    `json:"status"` // "success" | "failed"
	Source     string    `json:"source,omitempty"`
	Table      string    `json:"table"`
	Columns    []string  `json:"columns,omitempty"`
	Rows       int64     `json:"rows"`
	Checksum   string    `json:"checksum,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMs int64     `json:"duration_ms"`
	Error      *string   `json:"error,omitempty"`
}

// RedisPublisher публикует результат загрузки в Redis
type RedisPublisher struct {
	client *redis.Client
	config config.ResultLogConfig
}

// NewRedisPublisher создает новый Redis publisher на основе конфигурации
func NewRedisPublisher(cfg config.ResultLogConfig) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisPublisher{client: client, config: cfg}
}

// StateKey возвращает ключ с последним опубликованным результатом.
func (p *RedisPublisher) StateKey() string {
	return fmt.Sprintf("tdtp:bulk:%s:state", p.config.Name)
}

// Channel возвращает канал pub/sub, в который публикуются результаты.
func (p *RedisPublisher) Channel() string {
	return fmt.Sprintf("tdtp:bulk:%s", p.config.Name)
}

// NewLoadResult формирует публикуемое состояние из результата bulk.
// loadErr == nil означает успешную загрузку.
func NewLoadResult(name, source string, started time.Time, res bulk.Result, loadErr error) LoadResult {
	finished := started.Add(res.Duration)
	if res.Duration == 0 {
		finished = time.Now()
	}

	result := LoadResult{
		ResultName: name,
		Source:     source,
		Table:      res.Table,
		Columns:    res.Columns,
		Rows:       res.Rows,
		Checksum:   res.Checksum,
		StartedAt:  started,
		FinishedAt: finished,
		DurationMs: finished.Sub(started).Milliseconds(),
	}

	if loadErr != nil {
		result.Status = "failed"
		errStr := loadErr.Error()
		result.Error = &errStr
	} else {
		result.Status = "success"
	}
	return result
}

// Publish публикует результат загрузки:
//   - SET tdtp:bulk:<name>:state <JSON> EX <ttl>  → для опроса (polling)
//   - PUBLISH tdtp:bulk:<name> <JSON>              → для подписки (pub/sub)
//
// Вызывается независимо от результата загрузки (success или failed).
func (p *RedisPublisher) Publish(ctx context.Context, result LoadResult) error {
	if result.ResultName == "" {
		result.ResultName = p.config.Name
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	ttl := time.Duration(p.config.TTL) * time.Second

	// SET ключ с TTL: оркестратор может GET для получения последнего состояния
	if err := p.client.Set(ctx, p.StateKey(), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}

	// PUBLISH событие: оркестратор может SUBSCRIBE для event-driven маршрутизации
	if err := p.client.Publish(ctx, p.Channel(), payload).Err(); err != nil {
		return fmt.Errorf("redis PUBLISH failed: %w", err)
	}

	return nil
}

// State читает последний опубликованный результат.
func (p *RedisPublisher) State(ctx context.Context) (*LoadResult, error) {
	payload, err := p.client.Get(ctx, p.StateKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoState
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET failed: %w", err)
	}

	var result LoadResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return &result, nil
}

// Close закрывает соединение с Redis
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
