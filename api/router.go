// Package api contains all endpoints available
package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"matriesfinance/platform-api/cloudflare"
	"matriesfinance/platform-api/db"
	"matriesfinance/platform-api/internal/scheduler"
	"matriesfinance/platform-api/internal/service"
	"matriesfinance/platform-api/internal/store"
	"matriesfinance/platform-api/pkg/middleware"
	"matriesfinance/platform-api/pkg/security"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"

	maxJSONBody = 1 << 20
)

type Config struct {
	CORSOrigins    []string
	CookieDomain   string
	Secure         bool
	CookieTTL      time.Duration
	RequestTimeout time.Duration
	RateLimit      int
	Turnstile      middleware.TurnstileConfig
}

type API struct {
	DB        *gorm.DB
	Router    *gin.Engine
	Auth      *service.AuthService
	Scheduler *scheduler.Scheduler
	Limiter   *middleware.RateLimiter
	Redis     *redis.Client

	cfg Config
}

// NewRouter wires every dependency from the loaded configuration and
// registers the routes. The scheduler is created but not started.
func NewRouter(ctx context.Context) (*API, error) {
	makeLogger(viper.GetString("app.log_level"))

	gdb, err := db.New(viper.GetString("db.driver"), viper.GetString("db.dsn"))
	if err != nil {
		return nil, err
	}

	if err := db.Seed(gdb); err != nil {
		return nil, err
	}

	st := store.New(gdb)

	var (
		onetime store.OneTimeTokenStore
		rdb     *redis.Client
	)

	switch viper.GetString("onetime.backend") {
	case "redis":
		rdb = redis.NewClient(&redis.Options{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		})

		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis, %w", err)
		}

		onetime = store.NewRedisOneTimeStore(rdb)
	default:
		onetime = store.NewDBOneTimeStore(st)
	}

	tokens, err := security.NewTokenIssuer(security.TokenConfig{
		AccessSecret:  viper.GetString("jwt.access_secret"),
		RefreshSecret: viper.GetString("jwt.refresh_secret"),
		EmailSecret:   viper.GetString("jwt.email_secret"),
		ResetSecret:   viper.GetString("jwt.reset_secret"),
		AccessTTL:     viper.GetDuration("jwt.access_ttl"),
		RefreshTTL:    viper.GetDuration("jwt.refresh_ttl"),
		EmailTTL:      viper.GetDuration("jwt.email_ttl"),
		ResetTTL:      viper.GetDuration("jwt.reset_ttl"),
	})
	if err != nil {
		return nil, err
	}

	deps := service.Deps{
		Store:   st,
		OneTime: onetime,
		Tokens:  tokens,
		Argon:   security.New(),
		Mailer: service.NewTemplateMailer(st, service.MailConfig{
			Host:     viper.GetString("mail.host"),
			Port:     viper.GetInt("mail.port"),
			From:     viper.GetString("mail.sender_address"),
			Password: viper.GetString("mail.password"),
			SiteURL:  viper.GetString("mail.site_url"),
		}),
		SMS: service.NewTwilioSender(service.TwilioConfig{
			AccountSID:  viper.GetString("twilio.account_sid"),
			AuthToken:   viper.GetString("twilio.auth_token"),
			PhoneNumber: viper.GetString("twilio.phone_number"),
			BaseURL:     viper.GetString("twilio.base_url"),
		}),
	}

	if viper.GetString("cloudflare.bucket") != "" {
		r2, err := cloudflare.NewR2(ctx, cloudflare.R2Config{
			AccountID:       viper.GetString("cloudflare.account_id"),
			AccessKeyID:     viper.GetString("cloudflare.access_key_id"),
			SecretAccessKey: viper.GetString("cloudflare.secret_access_key"),
			Bucket:          viper.GetString("cloudflare.bucket"),
			PublicURL:       viper.GetString("cloudflare.public_url"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize R2 client, %w", err)
		}

		deps.Avatars = r2
	}

	auth, err := service.New(deps, service.Options{
		MaxFailedLogins: viper.GetInt("auth.max_failed_logins"),
		LockoutWindow:   viper.GetDuration("auth.lockout_window"),
		TOTPIssuer:      viper.GetString("app.name"),
	})
	if err != nil {
		return nil, err
	}

	sched := scheduler.New(zap.L())
	if err := sched.AddJob(service.CleanupJobName, viper.GetString("cron.cleanup_schedule"), auth.CleanupExpiredTokens); err != nil {
		return nil, err
	}

	a := New(Config{
		CORSOrigins:    viper.GetStringSlice("host.cors"),
		CookieDomain:   viper.GetString("host.domain"),
		Secure:         viper.GetBool("host.ssl.enabled"),
		CookieTTL:      viper.GetDuration("jwt.refresh_ttl"),
		RequestTimeout: viper.GetDuration("auth.request_timeout"),
		RateLimit:      viper.GetInt("security.rate_limit"),
		Turnstile: middleware.TurnstileConfig{
			Enabled: viper.GetBool("cloudflare.turnstile.enabled"),
			Secret:  viper.GetString("cloudflare.turnstile.secret_token"),
		},
	}, auth)

	a.DB = gdb
	a.Scheduler = sched
	a.Redis = rdb

	return a, nil
}

// New registers all routes on a fresh engine backed by auth.
func New(cfg Config, auth *service.AuthService) *API {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}

	if cfg.CookieTTL <= 0 {
		cfg.CookieTTL = 14 * 24 * time.Hour
	}

	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 10
	}

	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"http://localhost:3000"}
	}

	a := &API{
		Auth:    auth,
		Limiter: middleware.NewRateLimiter(middleware.RateLimiterConfig{RequestsPerSecond: cfg.RateLimit}),
		cfg:     cfg,
	}

	router := gin.New()
	a.Router = router

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.CSRFHeader, middleware.TurnstileHeader},
			ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString(middleware.RequestIDKey); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString(middleware.UserIDKey); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
		middleware.Timeout(cfg.RequestTimeout),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true
	router.MaxMultipartMemory = service.MaxAvatarSize

	authed := middleware.NewAuthMiddleware(auth)
	turnstile := middleware.NewTurnstileMiddleware(cfg.Turnstile)
	jsonBody := middleware.BodySizeLimiter(maxJSONBody)

	main := router.Group("/api")
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		main.HEAD("/heartbeat", a.Heartbeat)
	}

	auths := main.Group("/auth", a.Limiter.Middleware(), jsonBody)
	{
		// POST /api/auth/register		-> Creates an account and logs it in
		auths.POST("/register", turnstile, a.AuthRegister)

		// POST /api/auth/login		-> Logs in with email and password
		auths.POST("/login", turnstile, a.AuthLogin)

		// POST /api/auth/login/otp		-> Completes a login waiting for a one-time password
		auths.POST("/login/otp", a.AuthLoginOTP)

		// POST /api/auth/login/otp/resend	-> Sends the one-time password again
		auths.POST("/login/otp/resend", a.AuthResendOTP)

		// POST /api/auth/login/wallet	-> Logs in or signs up with a wallet address
		auths.POST("/login/wallet", a.AuthLoginWallet)

		// POST /api/auth/logout		-> Ends every session of the caller
		auths.POST("/logout", authed, a.AuthLogout)

		// POST /api/auth/refresh		-> Trades the refresh token for a new session
		auths.POST("/refresh", a.AuthRefresh)

		// POST /api/auth/verify-email	-> Mails a verification link to the caller
		auths.POST("/verify-email", authed, a.AuthSendEmailVerification)

		// POST /api/auth/verify-email/confirm	-> Marks the email of the token owner verified
		auths.POST("/verify-email/confirm", a.AuthVerifyEmail)

		// POST /api/auth/reset-password	-> Mails a password reset link
		auths.POST("/reset-password", turnstile, a.AuthResetPassword)

		// POST /api/auth/reset-password/confirm	-> Replaces the password and returns the new one
		auths.POST("/reset-password/confirm", a.AuthVerifyPasswordReset)
	}

	users := main.Group("/users", authed)
	{
		// GET /api/users/me		-> Returns the caller's profile and capabilities
		users.GET("/me", a.UserFetch)

		// PATCH /api/users/me		-> Updates the caller's profile
		users.PATCH("/me", jsonBody, a.UserUpdate)

		// PUT /api/users/me/avatar	-> Uploads a new avatar image
		users.PUT("/me/avatar", middleware.BodySizeLimiter(service.MaxAvatarSize+64<<10), a.UserAvatar)

		// POST /api/users/me/twofactor	-> Turns on two factor authentication
		users.POST("/me/twofactor", jsonBody, a.UserEnableTwoFactor)

		// DELETE /api/users/me/twofactor	-> Turns off two factor authentication
		users.DELETE("/me/twofactor", a.UserDisableTwoFactor)
	}

	return a
}

// Shutdown stops background work and closes connections.
func (a *API) Shutdown(ctx context.Context) error {
	var errs []error

	if a.Scheduler != nil {
		errs = append(errs, a.Scheduler.Stop(ctx))
	}

	if a.Auth != nil {
		errs = append(errs, a.Auth.Close())
	}

	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}

	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}

	return errors.Join(errs...)
}

func makeLogger(level string) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	cfg.DisableStacktrace = true

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}
