package cli

import (
	"github.com/pkg/errors"

	"github.com/Astemirdum/library-portal/pkg/envelope"
	"github.com/Astemirdum/library-portal/portal/internal/circulation"
	"github.com/Astemirdum/library-portal/portal/internal/session"
)

var messages = map[string]string{
	"ALREADY_BOOKED":            "У вас уже есть активная бронь на этот материал.",
	"NOT_AVAILABLE":             "К сожалению, сейчас нет доступных копий.",
	"RENEW_LIMIT":               "Лимит продлений: 2.",
	"INVALID_CREDENTIALS":       "Неверный email или пароль",
	"IDENTIFIER_ALREADY_EXISTS": "Этот email уже зарегистрирован",
	"INVALID_OR_EXPIRED_TOKEN":  "Ссылка недействительна или истекла",
	"FORBIDDEN":                 "Недостаточно прав.",
	"UNAUTHORIZED":              "Сессия истекла, войдите снова.",
	"TOO_MANY_REQUESTS":         "Слишком много запросов, попробуйте позже.",
}

const (
	msgUnavailable = "Сервер недоступен, попробуйте позже."
	msgNoLibrary   = "У вас не назначена библиотека. Действия с бронями недоступны, пока библиотекарь не привязан к библиотеке на сервере."
	msgForeign     = "Запись относится к другой библиотеке."
	msgBusy        = "Операция с этой записью уже выполняется."
	msgSignIn      = "Требуется вход: выполните portal login."
	msgNoToken     = "Сервер не выдал токен."
	msgArea        = "Раздел недоступен для вашей роли. Ваш раздел: "
	msgSignedIn    = "Вы уже вошли. Ваш раздел: "
)

const (
	failReserve  = "Не удалось создать бронь."
	failRenew    = "Не удалось продлить выдачу."
	failIssue    = "Не удалось оформить выдачу: "
	failApprove  = "Не удалось подтвердить бронь: "
	failCancel   = "Не удалось отменить бронь: "
	failReturn   = "Не удалось оформить возврат: "
	failPay      = "Не удалось отметить оплату: "
	failWriteOff = "Не удалось списать штраф: "
)

// failure attaches the fallback message of the action that failed.
type failure struct {
	fallback string
	err      error
}

func (f *failure) Error() string { return f.err.Error() }
func (f *failure) Unwrap() error { return f.err }

func fail(fallback string, err error) error {
	if err == nil {
		return nil
	}
	return &failure{fallback: fallback, err: err}
}

// Message turns an error into the text shown to the user. A fallback ending in a
// colon is followed by the error detail.
func Message(err error, fallback string) string {
	var f *failure
	if errors.As(err, &f) {
		fallback = f.fallback
	}
	var redirect *RedirectError
	switch {
	case errors.As(err, &redirect):
		switch {
		case redirect.Target == session.LoginPath:
			return msgSignIn
		case redirect.SignedIn:
			return msgSignedIn + redirect.Target
		}
		return msgArea + redirect.Target
	case errors.Is(err, circulation.ErrNoLibrary):
		return msgNoLibrary
	case errors.Is(err, circulation.ErrForeignLibrary):
		return msgForeign
	case errors.Is(err, circulation.ErrBusy):
		return msgBusy
	case errors.Is(err, session.ErrTokenNotFound):
		return msgNoToken
	}
	if msg, ok := messages[envelope.Code(err)]; ok {
		return msg
	}
	if envelope.Is(err, envelope.KindTransport) {
		return msgUnavailable
	}
	if fallback == "" {
		return err.Error()
	}
	if fallback[len(fallback)-1] == ' ' {
		return fallback + detail(err)
	}
	return fallback
}

// detail is the backend code when there is one.
func detail(err error) string {
	if code := envelope.Code(err); code != "" {
		return code
	}
	return errors.Cause(err).Error()
}
