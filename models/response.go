package models

import "time"

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type HealthResponse struct {
	Status  string    `json:"status"`
	Time    time.Time `json:"time"`
	Storage string    `json:"storage"`
}
