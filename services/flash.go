package services

import (
	"time"

	"timetable-lookup/models"
)

const flashKeyPrefix = "flash:"

// FlashStore хранит сообщения сессии до следующего рендера страницы
type FlashStore struct {
	cache *CacheService
	ttl   time.Duration
}

func NewFlashStore(cache *CacheService, ttl time.Duration) *FlashStore {
	return &FlashStore{cache: cache, ttl: ttl}
}

func (s *FlashStore) Add(sessionID string, flash models.Flash) {
	s.cache.Update(flashKeyPrefix+sessionID, func(value interface{}, found bool) (interface{}, time.Duration) {
		pending, _ := value.([]models.Flash)
		return append(pending, flash), s.ttl
	})
}

// Pop возвращает сообщения сессии и очищает их
func (s *FlashStore) Pop(sessionID string) []models.Flash {
	if sessionID == "" {
		return nil
	}

	value, found := s.cache.Take(flashKeyPrefix + sessionID)
	if !found {
		return nil
	}
	pending, _ := value.([]models.Flash)
	return pending
}

// Group группирует сообщения по типу, в таком виде их получают шаблоны
func Group(flashes []models.Flash) map[string][]string {
	grouped := make(map[string][]string, len(flashes))
	for _, f := range flashes {
		grouped[f.Kind] = append(grouped[f.Kind], f.Text)
	}
	return grouped
}
