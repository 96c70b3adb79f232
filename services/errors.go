package services

import "errors"

// Ошибки доменного уровня для действий над связями.
// Все они перехватываются на границе действия и превращаются
// в структурный ответ, частично закоммиченного состояния не бывает.
var (
	// ErrConflict - запись для пары уже существует, нужен пересмотр действия
	ErrConflict = errors.New("relationship already exists for this pair")

	// ErrStaleState - состояние изменилось между чтением и записью;
	// внутри сервиса повторяется один раз
	ErrStaleState = errors.New("relationship state changed concurrently")

	// ErrTransient - гонка повторилась и после ретрая
	ErrTransient = errors.New("temporary conflict, please retry")

	// ErrSelfTarget - действие над самим собой
	ErrSelfTarget = errors.New("you cannot perform this action on yourself")

	// ErrUserNotFound - целевой пользователь не существует
	ErrUserNotFound = errors.New("user not found")
)

// InvalidTransitionError - действие недопустимо для текущего состояния связи.
// Причина показывается пользователю как есть и никогда не ретраится.
type InvalidTransitionError struct {
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	return e.Reason
}

func invalidTransition(reason string) error {
	return &InvalidTransitionError{Reason: reason}
}

// IsInvalidTransition проверяет, является ли ошибка терминальным отказом таблицы переходов
func IsInvalidTransition(err error) bool {
	var ite *InvalidTransitionError
	return errors.As(err, &ite)
}
