package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/local/imageplanner/internal/imagery"
)

// Status is the externally visible state of one processing job.
type Status struct {
	Status   string                 `json:"status"`
	Progress int                    `json:"progress"`
	Message  string                 `json:"message"`
	Start    *time.Time             `json:"start_time,omitempty"`
	End      *time.Time             `json:"end_time,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// RedisStore keeps job status hashes and finished plan JSON in Redis.
type RedisStore struct {
	client    *redis.Client
	keyNS     string
	resultTTL time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(redisURL string, resultTTL time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	c := redis.NewClient(opt)
	if err := c.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	if resultTTL <= 0 {
		resultTTL = 24 * time.Hour
	}
	return &RedisStore{client: c, keyNS: "job", resultTTL: resultTTL}, nil
}

func (s *RedisStore) statusKey(jobID string) string {
	return fmt.Sprintf("%s:%s:status", s.keyNS, jobID)
}

func (s *RedisStore) resultKey(jobID string) string {
	return fmt.Sprintf("%s:%s:result", s.keyNS, jobID)
}

// SetStatus writes the job status hash.
func (s *RedisStore) SetStatus(ctx context.Context, jobID string, st Status) error {
	m := map[string]interface{}{
		"status":   st.Status,
		"progress": st.Progress,
		"message":  st.Message,
	}
	if st.Start != nil {
		m["start"] = st.Start.Format(time.RFC3339Nano)
	}
	if st.End != nil {
		m["end"] = st.End.Format(time.RFC3339Nano)
	}
	if st.Metadata != nil {
		b, _ := json.Marshal(st.Metadata)
		m["metadata"] = string(b)
	}
	if err := s.client.HSet(ctx, s.statusKey(jobID), m).Err(); err != nil {
		return err
	}
	return s.client.Expire(ctx, s.statusKey(jobID), s.resultTTL).Err()
}

// GetStatus reads the job status hash; the bool reports existence.
func (s *RedisStore) GetStatus(ctx context.Context, jobID string) (Status, bool, error) {
	res, err := s.client.HGetAll(ctx, s.statusKey(jobID)).Result()
	if err != nil {
		return Status{}, false, err
	}
	if len(res) == 0 {
		return Status{}, false, nil
	}
	st := Status{Status: res["status"], Message: res["message"]}
	if p := res["progress"]; p != "" {
		var pi int
		fmt.Sscan(p, &pi)
		st.Progress = pi
	}
	if v := res["start"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			st.Start = &t
		}
	}
	if v := res["end"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			st.End = &t
		}
	}
	if v := res["metadata"]; v != "" {
		_ = json.Unmarshal([]byte(v), &st.Metadata)
	}
	return st, true, nil
}

// SaveResult stores the finished ProcessResult as JSON with the result TTL.
func (s *RedisStore) SaveResult(ctx context.Context, jobID string, res imagery.ProcessResult) error {
	b, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return s.client.Set(ctx, s.resultKey(jobID), b, s.resultTTL).Err()
}

// GetResult loads a finished ProcessResult; the bool reports existence.
func (s *RedisStore) GetResult(ctx context.Context, jobID string) (imagery.ProcessResult, bool, error) {
	b, err := s.client.Get(ctx, s.resultKey(jobID)).Bytes()
	if err == redis.Nil {
		return imagery.ProcessResult{}, false, nil
	}
	if err != nil {
		return imagery.ProcessResult{}, false, err
	}
	var res imagery.ProcessResult
	if err := json.Unmarshal(b, &res); err != nil {
		return imagery.ProcessResult{}, false, fmt.Errorf("unmarshal result: %w", err)
	}
	return res, true, nil
}

// Ping verifies store connectivity for health checks.
func (s *RedisStore) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

func (s *RedisStore) Close() error { return s.client.Close() }
