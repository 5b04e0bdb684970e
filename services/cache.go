package services

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// CacheService хранит короткоживущее состояние процесса: flash-сообщения
// по сессиям и счётчики лимитера
type CacheService struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewCacheService(defaultExpiration, cleanupInterval time.Duration) *CacheService {
	return &CacheService{
		cache: cache.New(defaultExpiration, cleanupInterval),
	}
}

// Update атомарно читает значение по ключу и сохраняет то, что вернул fn,
// с новым временем жизни
func (s *CacheService) Update(key string, fn func(value interface{}, found bool) (interface{}, time.Duration)) interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, found := s.cache.Get(key)
	next, ttl := fn(current, found)
	s.cache.Set(key, next, ttl)
	return next
}

// Take возвращает значение и сразу удаляет его из кэша
func (s *CacheService) Take(key string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, found := s.cache.Get(key)
	if found {
		s.cache.Delete(key)
	}
	return value, found
}

func (s *CacheService) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Flush()
}
