package services

import (
	"context"
	"errors"
	"fmt"
	"os"

	"timetable-lookup/models"
)

// ErrTimetableNotFound - расписание с таким именем не найдено или не читается
var ErrTimetableNotFound = errors.New("timetable not found")

// TimetableStore открывает готовые расписания по имени файла.
// Хранилища ничего не пишут и не удаляют
type TimetableStore interface {
	Open(ctx context.Context, name string) (*models.TimetableFile, error)
	Ping(ctx context.Context) error
}

// FileStore отдаёт расписания из локальной директории
type FileStore struct {
	baseDir string
}

func NewFileStore(baseDir string) *FileStore {
	return &FileStore{baseDir: baseDir}
}

func (s *FileStore) Open(ctx context.Context, name string) (*models.TimetableFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Имя не фильтруется: "/" и ".." из формы попадают в путь как есть
	path := s.baseDir + "/" + name

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTimetableNotFound, path)
		}
		return nil, fmt.Errorf("failed to open timetable: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat timetable: %w", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%w: %s is a directory", ErrTimetableNotFound, path)
	}

	return &models.TimetableFile{
		Name:         name,
		Size:         info.Size(),
		LastModified: info.ModTime(),
		Body:         f,
	}, nil
}

// Ping проверяет наличие директории. Без неё сервис работает,
// но каждый поиск завершается ошибкой
func (s *FileStore) Ping(ctx context.Context) error {
	info, err := os.Stat(s.baseDir)
	if err != nil {
		return fmt.Errorf("timetables directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("timetables path %s is not a directory", s.baseDir)
	}
	return nil
}
