package services

import (
	"context"
	"fmt"

	"timetable-lookup/models"

	"go.uber.org/zap"
)

const timetableExt = ".timetable"

// TimetableFileName строит имя файла расписания. Единственное место, где
// ввод пользователя попадает в путь. Значения не экранируются, поэтому "+"
// внутри поля может совпасть с другой тройкой
func TimetableFileName(req models.TimetableRequest) string {
	return req.StudentID + "+" + req.FirstName + "+" + req.LastName + timetableExt
}

type TimetableService struct {
	store  TimetableStore
	logger *zap.Logger
}

func NewTimetableService(store TimetableStore, logger *zap.Logger) *TimetableService {
	return &TimetableService{
		store:  store,
		logger: logger,
	}
}

// Lookup открывает расписание и пишет ровно одно событие в лог.
// Закрыть файл должен вызывающий
func (s *TimetableService) Lookup(ctx context.Context, req models.TimetableRequest, fields ...zap.Field) (*models.TimetableFile, error) {
	name := TimetableFileName(req)

	file, err := s.store.Open(ctx, name)
	if err != nil {
		err = fmt.Errorf("lookup %q: %w", name, err)
		s.Log(models.LogEvent{
			StudentID: req.StudentID,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Outcome:   models.OutcomeFailure,
			Err:       err,
		}, fields...)
		return nil, err
	}

	s.Log(models.LogEvent{
		StudentID: req.StudentID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Outcome:   models.OutcomeSuccess,
	}, fields...)
	return file, nil
}

// Log пишет событие на уровне info при любом исходе
func (s *TimetableService) Log(ev models.LogEvent, fields ...zap.Field) {
	fields = append([]zap.Field{
		zap.String("student", ev.StudentID),
		zap.String("first", ev.FirstName),
		zap.String("last", ev.LastName),
		zap.String("outcome", ev.Outcome),
	}, fields...)
	if ev.Err != nil {
		fields = append(fields, zap.Bool("failed", true), zap.Error(ev.Err))
	}
	s.logger.Info("timetable lookup", fields...)
}

func (s *TimetableService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
