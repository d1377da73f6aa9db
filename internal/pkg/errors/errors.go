package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists используется, когда запись с такой идентичностью уже существует
	// (например, вопрос с тем же текстом или пользователь с тем же ID).
	ErrAlreadyExists = errors.New("record already exists")

	// ErrConflict используется, когда предусловие атомарного коммита не выполнено.
	// Единственная ошибка, которую имеет смысл повторять (после повторного чтения).
	ErrConflict = errors.New("resource state conflict")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrUnavailable используется при ошибках ввода-вывода хранилища (Redis недоступен и т.п.).
	ErrUnavailable = errors.New("storage unavailable")

	// ErrUnauthorized используется для ошибок авторизации (неверный токен, нет прав).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden используется, когда у пользователя недостаточно прав для действия.
	ErrForbidden = errors.New("forbidden")
)
