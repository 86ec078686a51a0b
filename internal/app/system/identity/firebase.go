package identity

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/dalemusser/campushub/internal/app/system/timeouts"
	"github.com/dalemusser/campushub/internal/domain/models"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Firebase implements Provider on Firebase Authentication.
type Firebase struct {
	client *auth.Client
	log    *zap.Logger
}

// FirebaseConfig selects the project and credentials. An empty
// CredentialsFile falls back to Application Default Credentials.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// NewFirebase initializes the Firebase app and its Auth client.
func NewFirebase(ctx context.Context, cfg FirebaseConfig, logger *zap.Logger) (*Firebase, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	var fbCfg *firebase.Config
	if cfg.ProjectID != "" {
		fbCfg = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, fbCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get auth client: %w", err)
	}
	return &Firebase{client: client, log: logger}, nil
}

func (f *Firebase) SetClaims(ctx context.Context, uid string, c models.Claims) error {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Identity(), f.log, "identity.set_claims")
	defer cancel()

	if err := f.client.SetCustomUserClaims(ctx, uid, EncodeClaims(c)); err != nil {
		return fmt.Errorf("set custom claims for %s: %w", uid, err)
	}
	return nil
}

func (f *Firebase) VerifyToken(ctx context.Context, token string) (Verified, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Identity(), f.log, "identity.verify_token")
	defer cancel()

	tok, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		if auth.IsIDTokenInvalid(err) || auth.IsIDTokenExpired(err) || auth.IsIDTokenRevoked(err) {
			return Verified{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		return Verified{}, fmt.Errorf("verify id token: %w", err)
	}
	return Verified{SubjectID: tok.UID, Claims: DecodeClaims(tok.Claims)}, nil
}

func (f *Firebase) CreateIdentity(ctx context.Context, uid, email, displayName string) error {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Identity(), f.log, "identity.create")
	defer cancel()

	params := (&auth.UserToCreate{}).UID(uid)
	if email != "" {
		params = params.Email(email)
	}
	if displayName != "" {
		params = params.DisplayName(displayName)
	}
	if _, err := f.client.CreateUser(ctx, params); err != nil {
		if auth.IsUIDAlreadyExists(err) {
			return nil
		}
		return fmt.Errorf("create identity %s: %w", uid, err)
	}
	f.log.Info("identity created", zap.String("uid", uid))
	return nil
}

func (f *Firebase) DeleteIdentity(ctx context.Context, uid string) error {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Identity(), f.log, "identity.delete")
	defer cancel()

	if err := f.client.DeleteUser(ctx, uid); err != nil {
		if auth.IsUserNotFound(err) {
			return nil
		}
		return fmt.Errorf("delete identity %s: %w", uid, err)
	}
	return nil
}
