package models

import (
	"io"
	"time"
)

// TimetableRequest - данные из формы, пустые значения допустимы
type TimetableRequest struct {
	StudentID string `form:"student" json:"student"`
	FirstName string `form:"first" json:"first"`
	LastName  string `form:"last" json:"last"`
}

// TimetableFile - открытый файл расписания, готовый к отдаче
type TimetableFile struct {
	Name         string
	Size         int64
	LastModified time.Time
	Body         io.ReadSeekCloser
}

func (f *TimetableFile) Close() error {
	if f == nil || f.Body == nil {
		return nil
	}
	return f.Body.Close()
}

// Исходы поиска для журнала
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// LogEvent - запись журнала об одной попытке поиска
type LogEvent struct {
	StudentID string
	FirstName string
	LastName  string
	Outcome   string
	Err       error
}

const FlashError = "error"

// Flash - сообщение, показываемое один раз при следующем рендере
type Flash struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}
