package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"matriesfinance/platform-api/internal/store"
	"matriesfinance/platform-api/model"
	"matriesfinance/platform-api/pkg/security"
)

// challenge puts a login into the pending state. SMS users get their code
// sent right away; app users read it from their authenticator.
func (s *AuthService) challenge(ctx context.Context, u *model.User) (*AuthResult, error) {
	if err := s.dispatchOTP(ctx, u); err != nil {
		return nil, err
	}

	if err := s.store.SaveLoginChallenge(ctx, u.ID, s.now().Add(s.opts.ChallengeTTL)); err != nil {
		return nil, internal(err)
	}

	return &AuthResult{
		Message: msgTwoFactor,
		UUID:    u.UUID,
		TwoFactor: &TwoFactorChallenge{
			Enabled: true,
			Type:    u.TwoFactor.Type,
			Secret:  u.TwoFactor.Secret,
		},
	}, nil
}

func (s *AuthService) dispatchOTP(ctx context.Context, u *model.User) error {
	if u.TwoFactor.Type != model.TwoFactorSMS {
		return nil
	}

	if u.Phone == nil || *u.Phone == "" {
		return ErrSMSFailed.wrap(errors.New("user has no phone number"))
	}

	code, err := security.GenerateOTP(u.TwoFactor.Secret, s.now())
	if err != nil {
		return internal(err)
	}

	if err := s.sms.Send(ctx, *u.Phone, "Your OTP is: "+code); err != nil {
		return ErrSMSFailed.wrap(err)
	}

	return nil
}

// VerifyLoginOTP completes a login left pending by LoginUser. Without a
// pending login every code is refused. Each code counts against the same
// lockout as passwords.
func (s *AuthService) VerifyLoginOTP(ctx context.Context, userUUID, otp string) (*AuthResult, error) {
	u, err := findUser(s.store.FindUserByUUID(ctx, userUUID))
	if err != nil {
		return nil, err
	}

	if u.TwoFactor == nil || !u.TwoFactor.Enabled {
		return nil, ErrTwoFactorNotEnabled
	}

	now := s.now()

	pending, err := s.store.HasLoginChallenge(ctx, u.ID, now)
	if err != nil {
		return nil, internal(err)
	}

	if !pending {
		return nil, ErrInvalidOtp
	}

	if err := s.attempt(ctx, u, now); err != nil {
		return nil, err
	}

	if !security.VerifyOTP(otp, u.TwoFactor.Secret, now) {
		return nil, ErrInvalidOtp
	}

	var cookies Cookies
	err = s.store.Transaction(ctx, func(tx *store.Store) error {
		// Only one verification can close the challenge
		if err := tx.ConsumeLoginChallenge(ctx, u.ID, now); err != nil {
			return err
		}

		if err := tx.ResetFailedLogins(ctx, u.ID, now); err != nil {
			return err
		}

		c, err := s.issueSession(ctx, tx, u)
		if err != nil {
			return err
		}

		cookies = c
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidOtp
		}

		return nil, internal(err)
	}

	return &AuthResult{Message: msgLoggedIn, Cookies: cookies}, nil
}

// ResendOTP sends a fresh code to an SMS user with a pending login and gives
// the login another challenge period. The caller proves it holds the
// pending challenge by echoing its secret.
func (s *AuthService) ResendOTP(ctx context.Context, userUUID, secret string) (*AuthResult, error) {
	if userUUID == "" || secret == "" {
		return nil, ErrMissingFields
	}

	u, err := findUser(s.store.FindUserByUUID(ctx, userUUID))
	if err != nil {
		return nil, err
	}

	if u.TwoFactor == nil || !u.TwoFactor.Enabled || u.TwoFactor.Secret != secret {
		return nil, ErrSecretMismatch
	}

	now := s.now()

	pending, err := s.store.HasLoginChallenge(ctx, u.ID, now)
	if err != nil {
		return nil, internal(err)
	}

	if !pending {
		return nil, ErrSecretMismatch
	}

	if err := s.store.SaveLoginChallenge(ctx, u.ID, now.Add(s.opts.ChallengeTTL)); err != nil {
		return nil, internal(err)
	}

	if err := s.dispatchOTP(ctx, u); err != nil {
		return nil, err
	}

	return &AuthResult{Message: msgOTPSent}, nil
}

type TwoFactorSetup struct {
	Type   model.TwoFactorType `json:"type"`
	Secret string              `json:"secret"`
}

// EnableTwoFactor generates a new seed for the user and turns two factor on.
// Any previous seed stops working.
func (s *AuthService) EnableTwoFactor(ctx context.Context, userID uint, typ model.TwoFactorType) (*TwoFactorSetup, error) {
	if typ != model.TwoFactorApp && typ != model.TwoFactorSMS {
		return nil, newError(ErrInvalidRequest, "Unsupported two factor type")
	}

	u, err := findUser(s.store.FindUserByID(ctx, userID))
	if err != nil {
		return nil, err
	}

	if typ == model.TwoFactorSMS && (u.Phone == nil || *u.Phone == "") {
		return nil, newError(ErrInvalidRequest, "A phone number is required for SMS two factor")
	}

	account := u.UUID
	if u.Email != nil {
		account = *u.Email
	}

	secret, err := security.NewOTPSecret(s.opts.TOTPIssuer, account)
	if err != nil {
		return nil, internal(err)
	}

	err = s.store.SaveTwoFactor(ctx, &model.TwoFactor{
		UserID:  u.ID,
		Enabled: true,
		Type:    typ,
		Secret:  secret,
	})
	if err != nil {
		return nil, internal(err)
	}

	zap.L().Debug("Two factor enabled", zap.Uint("userID", u.ID), zap.String("type", string(typ)))

	return &TwoFactorSetup{Type: typ, Secret: secret}, nil
}

func (s *AuthService) DisableTwoFactor(ctx context.Context, userID uint) error {
	err := s.store.DisableTwoFactor(ctx, userID)
	if err == nil || errors.Is(err, store.ErrNotFound) {
		return nil
	}

	return internal(err)
}
