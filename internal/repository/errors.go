package repository

import (
	"errors"

	"whiteboard/internal/models/task"
)

var (
	ErrNotFound      = errors.New("запись не найдена")
	ErrAlreadyExists = errors.New("запись уже существует")
	// ErrAlreadyDone - условное завершение проиграло гонку
	ErrAlreadyDone = task.ErrAlreadyDone
	// ErrNotDue - системное завершение задачи без наступившей даты возврата
	ErrNotDue = task.ErrNotDue
)
