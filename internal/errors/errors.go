// errors стандартизирует ответы об ошибках HTTP-слоя.
// На вход принимает ошибку сервиса (обёрнутый sentinel из пакета service),
// на выход даёт:
//   - HTTP-статус;
//   - стабильный машиночитаемый code;
//   - краткое безопасное message без утечки деталей.
//
// Отказы проверки токена отдаются с одинаковым message, различается только code.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/pribylovaa/realty-auth/internal/service"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// ErrInvalidRequest - тело или параметры запроса не разобраны.
var ErrInvalidRequest = stderrors.New("invalid request")

// APIError - единый формат для клиентов.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse - корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

type mapping struct {
	err    error
	status int
	code   string
	msg    string
}

const unauthenticated = "unauthenticated"

// Порядок важен: первая совпавшая по errors.Is запись выигрывает.
var table = []mapping{
	{service.ErrMalformedAuthHeader, http.StatusUnauthorized, "malformed_auth_header", unauthenticated},
	{service.ErrTokenBlacklisted, http.StatusUnauthorized, "token_revoked", unauthenticated},
	{service.ErrExpiredToken, http.StatusUnauthorized, "token_expired", unauthenticated},
	{service.ErrMalformedToken, http.StatusUnauthorized, "invalid_token", unauthenticated},
	{service.ErrMissingSubject, http.StatusUnauthorized, "missing_subject", unauthenticated},
	{service.ErrUnknownIdentity, http.StatusUnauthorized, "unknown_identity", unauthenticated},
	{service.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated", unauthenticated},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", "invalid credentials"},
	{service.ErrPhoneNotRegistered, http.StatusForbidden, "phone_not_registered", "phone number doesn't exist"},
	{service.ErrOTPMismatch, http.StatusUnauthorized, "otp_mismatch", "invalid otp"},
	{service.ErrOTPExpiredOrMissing, http.StatusBadRequest, "otp_expired", "otp expired or invalid, request a new one"},
	{service.ErrDuplicateCredential, http.StatusConflict, "already_exists", "email or telephone already registered"},
	{service.ErrAccountBlocked, http.StatusForbidden, "account_blocked", "account blocked"},
	{service.ErrInvalidEmail, http.StatusBadRequest, "invalid_email", "invalid email"},
	{service.ErrInvalidPhone, http.StatusBadRequest, "invalid_telephone", "enter a valid mobile number"},
	{service.ErrWeakPassword, http.StatusBadRequest, "weak_password", "password is too weak"},
	{service.ErrEmptyPassword, http.StatusBadRequest, "empty_password", "password is empty"},
	{ErrInvalidRequest, http.StatusBadRequest, "invalid_argument", "invalid argument"},
	{context.Canceled, StatusClientClosedRequest, "canceled", "canceled"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"},
}

// ToHTTP конвертирует ошибку сервиса в HTTP-статус и унифицированный ответ.
//
// Поведение:
//   - err == nil - программная ошибка вызова: 500/internal, чтобы не
//     послать "200 OK" с телом ошибки;
//   - известный sentinel (в том числе обёрнутый) - статус и code из таблицы;
//   - прочее - 500/internal без деталей.
func ToHTTP(err error) (int, ErrorResponse) {
	if err != nil {
		for _, m := range table {
			if stderrors.Is(err, m.err) {
				return m.status, ErrorResponse{Error: APIError{Code: m.code, Message: m.msg}}
			}
		}
	}

	return http.StatusInternalServerError, ErrorResponse{
		Error: APIError{
			Code:    "internal",
			Message: "internal error",
		},
	}
}

// WriteError - хелпер для HTTP-хендлеров.
// Пишет статус и тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
