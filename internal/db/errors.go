package db

import (
	"errors"
	"fmt"
)

var (
	// ErrStorage — общий признак ошибок хранилища, для errors.Is.
	ErrStorage = errors.New("storage error")
	// ErrMigration — схема не доведена до актуальной версии; запуск дальше невозможен.
	ErrMigration = errors.New("schema migration failed")
	// ErrEmptyPattern — пустой шаблон чистки совпал бы со всеми участниками.
	ErrEmptyPattern = errors.New("cleanup pattern is empty")
)

// StorageError — ошибка драйвера/соединения. Повторы — на стороне вызывающего.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
