package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/inkpress/go-auth/imagestore"
)

// Auther wires the validator, hasher, store, token service, verifier, and
// revocation controller into the sign-up/sign-in/verify flows.
type Auther struct {
	repo         RepositoryManager
	provider     IdentityProvider
	tokenService TokenService
	verifier     TokenVerifier
	revoker      *Revoker
	images       imagestore.Store
	logger       Logger
	activitySink ActivitySink
	useHashid    bool
}

// NewAuthenticator returns a new Authenticator. The signing secret and
// token horizon come from cfg; the Auther never reads ambient process
// state.
func NewAuthenticator(repo RepositoryManager, cfg Config) *Auther {
	logger := defLogger{}

	tokenService := NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenExpiration(),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		logger,
	)

	provider := NewAccountProvider(repo.Accounts())

	return &Auther{
		repo:         repo,
		provider:     provider,
		tokenService: tokenService,
		verifier:     NewVersionVerifier(tokenService, provider, logger),
		revoker:      NewRevoker(repo.Accounts()),
		images:       imagestore.Noop{},
		logger:       logger,
		activitySink: noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
		s.revoker = s.revoker.WithLogger(logger)
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithImageStore configures the object-storage collaborator for profile
// images.
func (s *Auther) WithImageStore(store imagestore.Store) *Auther {
	if store != nil {
		s.images = store
	}
	return s
}

// WithTokenVerifier sets a custom verifier for externally issued tokens.
func (s *Auther) WithTokenVerifier(verifier TokenVerifier) *Auther {
	if verifier != nil {
		s.verifier = verifier
	}
	return s
}

// WithHashids derives deterministic account ids from emails at sign-up.
func (s *Auther) WithHashids() *Auther {
	s.useHashid = true
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Verifier returns the token verifier used by this Authenticator.
func (s *Auther) Verifier() TokenVerifier {
	return s.verifier
}

var _ Authenticator = (*Auther)(nil)

// SignUp validates the payload, hashes the password, and creates the
// account with token_version zero. Validation failures enumerate every
// violated field; partial successes do not exist.
func (s *Auther) SignUp(ctx context.Context, payload SignUpPayload) (*Account, error) {
	if err := payload.Validate(); err != nil {
		return nil, wrapValidationError(err)
	}

	var account *Account
	msg := RegisterAccountMessage{
		Name:      payload.Name,
		Email:     payload.Email,
		Phone:     payload.Phone,
		Password:  payload.Password,
		Image:     payload.Image,
		UseHashid: s.useHashid,
		OnAccount: func(a *Account) { account = a },
	}

	handler := RegisterAccountHandler{repo: s.repo}
	if err := handler.Execute(ctx, msg); err != nil {
		s.logger.Error("SignUp registration failed: %v", err)
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventSignUp, account.ID.String(), map[string]any{
		"email": account.Email,
	})

	return account, nil
}

// SignIn validates the payload, resolves the single identifier, verifies
// the password, and issues a token snapshotting the current
// token_version. Unknown identifier and wrong password are not
// distinguished.
func (s *Auther) SignIn(ctx context.Context, payload SignInPayload) (string, Identity, error) {
	if err := payload.Validate(); err != nil {
		return "", nil, wrapValidationError(err)
	}

	identity, err := s.provider.VerifyIdentity(ctx, payload.Identifier(), payload.Password)
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventSignInFailure, "", map[string]any{
			"identifier": payload.Identifier().Value,
			"error":      err.Error(),
		})
		return "", nil, err
	}

	token, err := s.tokenService.Issue(identity, identity.TokenVersion())
	if err != nil {
		s.logger.Error("SignIn token issuance failed: %v", err)
		return "", nil, errors.Wrap(err, errors.CategoryInternal, "failed to issue token")
	}

	s.emitAuthEvent(ctx, ActivityEventSignInSuccess, identity.ID(), map[string]any{
		"identifier": payload.Identifier().Value,
	})

	return token, identity, nil
}

// Verify runs the full token check: signature, expiry, counter freshness.
func (s *Auther) Verify(ctx context.Context, raw string) (Identity, error) {
	return s.verifier.Verify(ctx, raw)
}

// ChangePassword swaps the hash after checking the current password. The
// counter bump rides the same statement, so the change and the revocation
// commit together or not at all.
func (s *Auther) ChangePassword(ctx context.Context, accountID, current, next string) error {
	if len(next) < 8 {
		return ValidationFailed(map[string]string{
			"new_password": "the length must be no less than 8",
		})
	}

	var version int
	msg := ChangePasswordMessage{
		AccountID:       accountID,
		CurrentPassword: current,
		NewPassword:     next,
		OnVersion:       func(v int) { version = v },
	}

	handler := ChangePasswordHandler{repo: s.repo}
	if err := handler.Execute(ctx, msg); err != nil {
		return err
	}

	s.emitAuthEvent(ctx, ActivityEventPasswordChanged, accountID, map[string]any{
		"token_version": version,
	})

	return nil
}

// RevokeAll signs the account out everywhere by advancing its counter.
func (s *Auther) RevokeAll(ctx context.Context, accountID string) (int, error) {
	version, err := s.revoker.RevokeAll(ctx, accountID)
	if err != nil {
		return 0, err
	}

	s.emitAuthEvent(ctx, ActivityEventRevokedAll, accountID, map[string]any{
		"token_version": version,
	})

	return version, nil
}

// UploadProfileImage stores the buffer with the object-storage
// collaborator and records the resulting URL on the account. Storage
// failures surface to the caller but leave the account untouched.
func (s *Auther) UploadProfileImage(ctx context.Context, accountID string, data []byte, name string) (imagestore.Object, error) {
	account, err := s.repo.Accounts().GetByAccountID(ctx, accountID)
	if err != nil {
		return imagestore.Object{}, err
	}

	obj, err := s.images.Upload(ctx, data, imagestore.UploadOptions{Name: name})
	if err != nil {
		s.logger.Warn("profile image upload failed for account %s: %v", accountID, err)
		return imagestore.Object{}, errors.Wrap(err, errors.CategoryExternal, "image upload failed")
	}

	account.Image = obj.URL
	if _, err := s.repo.Accounts().Update(ctx, account, repository.UpdateByID(account.ID.String())); err != nil {
		return imagestore.Object{}, err
	}

	return obj, nil
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, accountID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType: eventType,
		AccountID: accountID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}
