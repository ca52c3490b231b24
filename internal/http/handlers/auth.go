package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/realty-auth/internal/errors"
	"github.com/pribylovaa/realty-auth/internal/http/middleware"
	"github.com/pribylovaa/realty-auth/internal/service"
)

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrInvalidRequest)
		return
	}

	user, bundle, err := h.svc.Register(r.Context(), service.RegisterInput{
		Email:     in.Email,
		Phone:     string(in.Telephone),
		Password:  in.Password,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		UserType:  in.UserType,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		Message:        "User registered successfully",
		UserID:         user.ID.String(),
		Username:       user.FullName(),
		tokensResponse: tokensFrom(bundle),
	})
}

// Login: телефон запускает вход по OTP, email+пароль выдают токены сразу.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrInvalidRequest)
		return
	}

	switch {
	case in.Telephone != "":
		ch, err := h.svc.StartOTPLogin(r.Context(), string(in.Telephone))
		if err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, otpSentResponse{
			Message:      "OTP sent successfully",
			IsOTPSent:    true,
			IsRegistered: true,
			OTP:          ch.Code,
			ExpiresIn:    int64(ch.ExpiresIn.Seconds()),
		})

	case in.Email != "" && in.Password != "":
		user, bundle, err := h.svc.Login(r.Context(), in.Email, in.Password)
		if err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, loginResponse{
			Message:        "Login successful",
			UserID:         user.ID.String(),
			Email:          user.Email,
			tokensResponse: tokensFrom(bundle),
		})

	default:
		apierrors.WriteError(w, r, apierrors.ErrInvalidRequest)
	}
}

func (h *Handlers) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var in verifyOTPRequest
	if err := decodeStrict(r, &in); err != nil || in.Telephone == "" || in.OTP == "" {
		apierrors.WriteError(w, r, apierrors.ErrInvalidRequest)
		return
	}

	res, err := h.svc.VerifyOTPLogin(r.Context(), string(in.Telephone), string(in.OTP))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, verifyOTPResponse{
		Message:        "Login successful",
		UserID:         res.User.ID.String(),
		IsNewUser:      res.IsNewUser,
		tokensResponse: tokensFrom(res.Bundle),
	})
}

func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := decodeStrict(r, &in); err != nil || in.RefreshToken == "" {
		apierrors.WriteError(w, r, apierrors.ErrInvalidRequest)
		return
	}

	user, bundle, err := h.svc.Refresh(r.Context(), in.RefreshToken)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Message:        "Token refreshed",
		UserID:         user.ID.String(),
		tokensResponse: tokensFrom(bundle),
	})
}

// Logout отзывает токен, которым подписан запрос. Требует RequireAuth.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrUnauthenticated)
		return
	}

	if err := h.svc.Logout(r.Context(), p.User.ID, p.Token); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out"})
}

func (h *Handlers) PasswordReset(w http.ResponseWriter, r *http.Request) {
	var in passwordResetRequest
	if err := decodeStrict(r, &in); err != nil || in.Telephone == "" {
		apierrors.WriteError(w, r, apierrors.ErrInvalidRequest)
		return
	}

	ch, err := h.svc.StartPasswordReset(r.Context(), string(in.Telephone))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, otpSentResponse{
		Message:      "OTP sent successfully",
		IsOTPSent:    true,
		IsRegistered: true,
		OTP:          ch.Code,
		ExpiresIn:    int64(ch.ExpiresIn.Seconds()),
	})
}

func (h *Handlers) PasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	var in passwordResetConfirmRequest
	if err := decodeStrict(r, &in); err != nil || in.Telephone == "" || in.OTP == "" {
		apierrors.WriteError(w, r, apierrors.ErrInvalidRequest)
		return
	}

	if err := h.svc.ConfirmPasswordReset(r.Context(), string(in.Telephone), string(in.OTP), in.NewPassword); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Password updated"})
}
