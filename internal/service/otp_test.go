package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/realty-auth/internal/config"
	"github.com/pribylovaa/realty-auth/internal/models"
	"github.com/pribylovaa/realty-auth/internal/storage"
)

const phone = "9876543210"

func TestStartOTPLogin_OK(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	user := newUser()

	f.st.EXPECT().UserByPhone(gomock.Any(), phone).Return(user, nil)

	ch, err := f.svc.StartOTPLogin(context.Background(), phone)
	require.NoError(t, err)
	require.Len(t, ch.Code, 4)
	require.Equal(t, ch.Code, f.sender.last(PurposeLogin, phone))
	require.Equal(t, 5*time.Minute, ch.ExpiresIn)
}

func TestStartOTPLogin_CodeHiddenByDefault(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(_ *config.AuthConfig, o *config.OTPConfig) {
		o.ExposeCode = false
		o.Length = 6
	})

	f.st.EXPECT().UserByPhone(gomock.Any(), phone).Return(newUser(), nil)

	ch, err := f.svc.StartOTPLogin(context.Background(), phone)
	require.NoError(t, err)
	require.Empty(t, ch.Code)
	require.Len(t, f.sender.last(PurposeLogin, phone), 6)
}

func TestStartOTPLogin_Errors(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	blocked := newUser()
	blocked.Blocked = true

	_, err := f.svc.StartOTPLogin(context.Background(), "123")
	require.ErrorIs(t, err, ErrInvalidPhone)

	f.st.EXPECT().UserByPhone(gomock.Any(), "1111111111").Return(nil, storage.ErrNotFound)
	_, err = f.svc.StartOTPLogin(context.Background(), "1111111111")
	require.ErrorIs(t, err, ErrPhoneNotRegistered)

	f.st.EXPECT().UserByPhone(gomock.Any(), phone).Return(blocked, nil)
	_, err = f.svc.StartOTPLogin(context.Background(), phone)
	require.ErrorIs(t, err, ErrAccountBlocked)
}

func TestStartOTPLogin_SendFailure_DropsSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	sendErr := errors.New("sms gateway down")
	f.sender.err = sendErr

	f.st.EXPECT().UserByPhone(gomock.Any(), phone).Return(newUser(), nil)

	_, err := f.svc.StartOTPLogin(context.Background(), phone)
	require.ErrorIs(t, err, sendErr)

	_, err = f.svc.VerifyOTPLogin(context.Background(), phone, "1111")
	require.ErrorIs(t, err, ErrOTPExpiredOrMissing)
}

func TestVerifyOTPLogin_Flow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	user := newUser()
	user.Email = ""

	f.st.EXPECT().UserByPhone(gomock.Any(), phone).Return(user, nil)
	ch, err := f.svc.StartOTPLogin(ctx, phone)
	require.NoError(t, err)

	// Неверный код не гасит сессию.
	wrong := "0000"
	_, err = f.svc.VerifyOTPLogin(ctx, phone, wrong)
	require.ErrorIs(t, err, ErrOTPMismatch)

	f.st.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil)
	f.st.EXPECT().RecordToken(gomock.Any(), user.ID, gomock.Any()).Return(nil).Times(2)

	res, err := f.svc.VerifyOTPLogin(ctx, phone, ch.Code)
	require.NoError(t, err)
	require.Equal(t, user.ID, res.User.ID)
	require.True(t, res.IsNewUser)
	require.NotEmpty(t, res.Bundle.AccessToken)

	// Код одноразовый.
	_, err = f.svc.VerifyOTPLogin(ctx, phone, ch.Code)
	require.ErrorIs(t, err, ErrOTPExpiredOrMissing)
}

func TestVerifyOTPLogin_ConcurrentSingleUse(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	user := newUser()

	f.st.EXPECT().UserByPhone(gomock.Any(), phone).Return(user, nil)
	ch, err := f.svc.StartOTPLogin(ctx, phone)
	require.NoError(t, err)

	// Медленная БД: все проверки успевают прочитать сессию до её погашения.
	f.st.EXPECT().UserByID(gomock.Any(), user.ID).
		DoAndReturn(func(context.Context, uuid.UUID) (*models.User, error) {
			time.Sleep(20 * time.Millisecond)
			return user, nil
		}).AnyTimes()
	f.st.EXPECT().RecordToken(gomock.Any(), user.ID, gomock.Any()).Return(nil).AnyTimes()

	const workers = 8
	var (
		wg      sync.WaitGroup
		logins  atomic.Int32
		refused atomic.Int32
	)

	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start

			_, err := f.svc.VerifyOTPLogin(ctx, phone, ch.Code)
			switch {
			case err == nil:
				logins.Add(1)
			case errors.Is(err, ErrOTPExpiredOrMissing):
				refused.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.EqualValues(t, 1, logins.Load())
	require.EqualValues(t, workers-1, refused.Load())
}

func TestConfirmPasswordReset_ConcurrentSingleUse(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	user := newUser()

	f.st.EXPECT().UserByPhone(gomock.Any(), phone).Return(user, nil)
	ch, err := f.svc.StartPasswordReset(ctx, phone)
	require.NoError(t, err)

	f.st.EXPECT().UpdatePassword(gomock.Any(), user.ID, gomock.Any()).Return(nil).Times(1)
	f.st.EXPECT().ActiveTokens(gomock.Any(), user.ID, gomock.Any()).Return(nil, nil).Times(1)
	f.st.EXPECT().BlockAllTokens(gomock.Any(), user.ID).Return(int64(0), nil).Times(1)

	const workers = 8
	var (
		wg   sync.WaitGroup
		done atomic.Int32
	)

	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start

			if f.svc.ConfirmPasswordReset(ctx, phone, ch.Code, goodPassword) == nil {
				done.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.EqualValues(t, 1, done.Load())
}

func TestVerifyOTPLogin_RestartReplacesCode(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	user := newUser()

	f.st.EXPECT().UserByPhone(gomock.Any(), phone).Return(user, nil).Times(2)

	first, err := f.svc.StartOTPLogin(ctx, phone)
	require.NoError(t, err)

	var second *OTPChallenge
	for {
		second, err = f.svc.StartOTPLogin(ctx, phone)
		require.NoError(t, err)
		if second.Code != first.Code {
			break
		}
		f.st.EXPECT().UserByPhone(gomock.Any(), phone).Return(user, nil)
	}

	_, err = f.svc.VerifyOTPLogin(ctx, phone, first.Code)
	require.ErrorIs(t, err, ErrOTPMismatch)

	f.st.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil)
	f.st.EXPECT().RecordToken(gomock.Any(), user.ID, gomock.Any()).Return(nil).Times(2)

	res, err := f.svc.VerifyOTPLogin(ctx, phone, second.Code)
	require.NoError(t, err)
	require.False(t, res.IsNewUser)
}

func TestVerifyOTPLogin_Expired(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()
	f.mem.WithClock(func() time.Time { return now })

	user := newUser()
	f.st.EXPECT().UserByPhone(gomock.Any(), phone).Return(user, nil)
	ch, err := f.svc.StartOTPLogin(ctx, phone)
	require.NoError(t, err)

	now = now.Add(5*time.Minute + time.Second)

	_, err = f.svc.VerifyOTPLogin(ctx, phone, ch.Code)
	require.ErrorIs(t, err, ErrOTPExpiredOrMissing)
}

func TestVerifyOTPLogin_BlockedAfterStart(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	user := newUser()

	f.st.EXPECT().UserByPhone(gomock.Any(), phone).Return(user, nil)
	ch, err := f.svc.StartOTPLogin(ctx, phone)
	require.NoError(t, err)

	blocked := *user
	blocked.Blocked = true
	f.st.EXPECT().UserByID(gomock.Any(), user.ID).Return(&blocked, nil)

	_, err = f.svc.VerifyOTPLogin(ctx, phone, ch.Code)
	require.ErrorIs(t, err, ErrAccountBlocked)
}

func TestVerifyOTPLogin_InvalidPhone(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.svc.VerifyOTPLogin(context.Background(), "abc", "1234")
	require.ErrorIs(t, err, ErrInvalidPhone)
}

func TestPasswordReset_Flow(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	user := newUser()
	old := f.issue(t, user.ID.String(), models.KindAccess, time.Now())

	f.st.EXPECT().UserByPhone(gomock.Any(), phone).Return(user, nil)
	ch, err := f.svc.StartPasswordReset(ctx, phone)
	require.NoError(t, err)
	require.Equal(t, ch.Code, f.sender.last(PurposeReset, phone))

	// Сессия сброса не принимается для входа.
	_, err = f.svc.VerifyOTPLogin(ctx, phone, ch.Code)
	require.ErrorIs(t, err, ErrOTPExpiredOrMissing)

	err = f.svc.ConfirmPasswordReset(ctx, phone, ch.Code, "weak")
	require.ErrorIs(t, err, ErrWeakPassword)

	var newHash string
	f.st.EXPECT().UpdatePassword(gomock.Any(), user.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, h string) error {
			newHash = h
			return nil
		})
	f.st.EXPECT().ActiveTokens(gomock.Any(), user.ID, gomock.Any()).
		Return([]models.LedgerEntry{{UserID: user.ID, Token: old}}, nil)
	f.st.EXPECT().BlockAllTokens(gomock.Any(), user.ID).Return(int64(1), nil)

	require.NoError(t, f.svc.ConfirmPasswordReset(ctx, phone, ch.Code, "N3w-Passw0rd"))

	ok, err := f.hasher.Compare(newHash, "N3w-Passw0rd")
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.svc.Authenticate(ctx, "Bearer "+old)
	require.ErrorIs(t, err, ErrTokenBlacklisted)

	err = f.svc.ConfirmPasswordReset(ctx, phone, ch.Code, "N3w-Passw0rd")
	require.ErrorIs(t, err, ErrOTPExpiredOrMissing)
}

func TestConfirmPasswordReset_Errors(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	user := newUser()

	err := f.svc.ConfirmPasswordReset(ctx, phone, "1234", goodPassword)
	require.ErrorIs(t, err, ErrOTPExpiredOrMissing)

	f.st.EXPECT().UserByPhone(gomock.Any(), phone).Return(user, nil)
	ch, err := f.svc.StartPasswordReset(ctx, phone)
	require.NoError(t, err)

	err = f.svc.ConfirmPasswordReset(ctx, phone, "0000", goodPassword)
	require.ErrorIs(t, err, ErrOTPMismatch)

	f.st.EXPECT().UpdatePassword(gomock.Any(), user.ID, gomock.Any()).Return(storage.ErrNotFound)
	err = f.svc.ConfirmPasswordReset(ctx, phone, ch.Code, goodPassword)
	require.ErrorIs(t, err, ErrUnknownIdentity)

	// сессия погашена до смены пароля и повторно не принимается
	err = f.svc.ConfirmPasswordReset(ctx, phone, ch.Code, goodPassword)
	require.ErrorIs(t, err, ErrOTPExpiredOrMissing)
}

func TestOTPKey(t *testing.T) {
	t.Parallel()

	require.Equal(t, phone, otpKey(phone, PurposeLogin))
	require.Equal(t, "reset:"+phone, otpKey(phone, PurposeReset))
}
