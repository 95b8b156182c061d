package services

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/stitchfin/payops-agent/internal/domain"
	"github.com/stitchfin/payops-agent/internal/pkg/logger"
)

// MemoryService is the agent's long-term incident memory: anomaly patterns
// associated with interventions that measurably helped. Backed by a Redis
// hash, with an in-process mirror so recall survives a Redis outage.
type MemoryService interface {
	RecallSimilarPatterns(ctx context.Context, pattern []domain.Anomaly, limit int) ([]domain.MemoryRecord, error)
	StoreMemory(ctx context.Context, record domain.MemoryRecord) error
}

type memoryService struct {
	log *logger.Logger
	rdb *redis.Client

	mu    sync.RWMutex
	cache map[string]domain.MemoryRecord
}

func NewMemoryService(log *logger.Logger, rdb *redis.Client) MemoryService {
	s := &memoryService{
		log:   log.With("service", "MemoryService"),
		rdb:   rdb,
		cache: make(map[string]domain.MemoryRecord),
	}
	s.warmFromRedis()
	return s
}

func (s *memoryService) warmFromRedis() {
	if s.rdb == nil {
		return
	}
	ctx := context.Background()
	entries, err := s.rdb.HGetAll(ctx, keyAgentMemory).Result()
	if err != nil {
		s.log.Warn("memory warm-up failed", "error", err)
		return
	}
	for id, raw := range entries {
		var r domain.MemoryRecord
		if uErr := json.Unmarshal([]byte(raw), &r); uErr != nil {
			continue
		}
		s.cache[id] = r
	}
	if len(s.cache) > 0 {
		s.log.Info("memory restored", "records", len(s.cache))
	}
}

func (s *memoryService) StoreMemory(ctx context.Context, record domain.MemoryRecord) error {
	s.mu.Lock()
	s.cache[record.ID] = record
	s.mu.Unlock()

	if s.rdb == nil {
		return nil
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := s.rdb.HSet(ctx, keyAgentMemory, record.ID, raw).Err(); err != nil {
		s.log.Warn("memory persist failed", "error", err)
	}
	return nil
}

// RecallSimilarPatterns ranks stored incidents by anomaly-type overlap with
// the current pattern and returns the strongest matches.
func (s *memoryService) RecallSimilarPatterns(ctx context.Context, pattern []domain.Anomaly, limit int) ([]domain.MemoryRecord, error) {
	if len(pattern) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 3
	}

	current := make(map[string]bool, len(pattern))
	for _, a := range pattern {
		current[a.Type] = true
	}

	type scored struct {
		record  domain.MemoryRecord
		overlap int
	}

	s.mu.RLock()
	matches := make([]scored, 0, len(s.cache))
	for _, r := range s.cache {
		overlap := 0
		for _, a := range r.AnomalyPattern {
			if current[a.Type] {
				overlap++
			}
		}
		if overlap > 0 {
			matches = append(matches, scored{record: r, overlap: overlap})
		}
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].overlap != matches[j].overlap {
			return matches[i].overlap > matches[j].overlap
		}
		return matches[i].record.Improvement > matches[j].record.Improvement
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]domain.MemoryRecord, len(matches))
	for i, m := range matches {
		out[i] = m.record
	}
	return out, nil
}
