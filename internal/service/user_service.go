package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"vidtube/internal/domain"
	"vidtube/internal/media"
	"vidtube/internal/repository"
)

// UserService coordina registro y sesiones de usuarios.
type UserService struct {
	logger   *zap.Logger
	users    repository.UserRepository
	uploader media.Uploader
	hasher   PasswordHasher
	tokens   *TokenService
}

func NewUserService(logger *zap.Logger, users repository.UserRepository, uploader media.Uploader, hasher PasswordHasher, tokens *TokenService) *UserService {
	return &UserService{
		logger:   logger,
		users:    users,
		uploader: uploader,
		hasher:   hasher,
		tokens:   tokens,
	}
}

var (
	ErrValidation          = errors.New("all fields are required")
	ErrDuplicateUser       = errors.New("email or username already exists")
	ErrMissingAvatar       = errors.New("avatar file is required")
	ErrMissingFile         = errors.New("file is required")
	ErrUploadFailed        = errors.New("media upload failed")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUserNotFound        = errors.New("user not found")
	ErrCreationCheckFailed = errors.New("failed to verify created user")
)

type RegisterInput struct {
	Fullname   string
	Email      string
	Password   string
	Username   string
	AvatarPath string
	CoverPath  string
}

// Register ejecuta la transacción de registro: chequeo de existencia,
// subida de media, creación y relectura saneada. Los archivos
// temporales se eliminan en toda salida, exitosa o no.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (domain.PublicUser, error) {
	defer media.Cleanup(s.logger, input.AvatarPath, input.CoverPath)

	if s.users == nil || s.uploader == nil || s.tokens == nil {
		return domain.PublicUser{}, errors.New("user service not configured")
	}

	fullname := strings.TrimSpace(input.Fullname)
	email := normalizeIdentity(input.Email)
	username := normalizeIdentity(input.Username)
	password := strings.TrimSpace(input.Password)
	if fullname == "" || email == "" || username == "" || password == "" {
		return domain.PublicUser{}, ErrValidation
	}

	_, err := s.users.GetByEmailOrUsername(ctx, email, username)
	if err == nil {
		return domain.PublicUser{}, ErrDuplicateUser
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.PublicUser{}, err
	}

	if input.AvatarPath == "" {
		return domain.PublicUser{}, ErrMissingAvatar
	}
	avatarURL, err := s.uploader.Upload(ctx, input.AvatarPath)
	if err != nil {
		s.logger.Warn("avatar upload failed", zap.Error(err))
		return domain.PublicUser{}, ErrUploadFailed
	}

	// La portada es opcional y best-effort: su fallo no bloquea el registro.
	coverURL := ""
	if input.CoverPath != "" {
		url, err := s.uploader.Upload(ctx, input.CoverPath)
		if err != nil {
			s.logger.Warn("cover upload failed", zap.Error(err))
		} else {
			coverURL = url
		}
	}

	// Hash de la contraseña exactamente una vez, aquí, al fijarla.
	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return domain.PublicUser{}, err
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		Fullname:     fullname,
		AvatarURL:    avatarURL,
		CoverURL:     coverURL,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// La constraint del store es la red de seguridad real contra
		// registros duplicados concurrentes entre chequeo y creación.
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.PublicUser{}, ErrDuplicateUser
		}
		return domain.PublicUser{}, err
	}

	created, err := s.users.GetByIDPublic(ctx, user.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PublicUser{}, ErrCreationCheckFailed
		}
		return domain.PublicUser{}, err
	}
	return created, nil
}

// Login exige email, username y password a la vez. Usuario inexistente
// y contraseña errónea devuelven el mismo error.
func (s *UserService) Login(ctx context.Context, email, username, password string) (domain.PublicUser, TokenPair, error) {
	if s.users == nil || s.tokens == nil {
		return domain.PublicUser{}, TokenPair{}, errors.New("user service not configured")
	}

	email = normalizeIdentity(email)
	username = normalizeIdentity(username)
	password = strings.TrimSpace(password)
	if email == "" || username == "" || password == "" {
		return domain.PublicUser{}, TokenPair{}, ErrValidation
	}

	user, err := s.users.GetByEmailOrUsername(ctx, email, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PublicUser{}, TokenPair{}, ErrInvalidCredentials
		}
		return domain.PublicUser{}, TokenPair{}, err
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return domain.PublicUser{}, TokenPair{}, err
	}
	if !ok {
		return domain.PublicUser{}, TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return domain.PublicUser{}, TokenPair{}, err
	}

	// Único estado de sesión durable: el refresh token en el registro
	// del usuario. Re-login sobreescribe el anterior.
	refresh := pair.RefreshToken
	if err := s.users.UpdateRefreshToken(ctx, user.ID, &refresh); err != nil {
		return domain.PublicUser{}, TokenPair{}, err
	}

	return user.Public(), pair, nil
}

// Logout limpia el refresh token almacenado; con eso el token deja de
// ser canjeable.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	if s.users == nil {
		return errors.New("user service not configured")
	}
	if err := s.users.UpdateRefreshToken(ctx, userID, nil); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// Refresh canjea un refresh token válido por un nuevo par, rotando el
// token almacenado. El presentado debe coincidir con el guardado.
func (s *UserService) Refresh(ctx context.Context, presented string) (domain.PublicUser, TokenPair, error) {
	if s.users == nil || s.tokens == nil {
		return domain.PublicUser{}, TokenPair{}, errors.New("user service not configured")
	}

	claims, err := s.tokens.Verify(presented, TokenKindRefresh)
	if err != nil {
		return domain.PublicUser{}, TokenPair{}, ErrTokenInvalid
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PublicUser{}, TokenPair{}, ErrTokenInvalid
		}
		return domain.PublicUser{}, TokenPair{}, err
	}
	if user.RefreshToken == nil || *user.RefreshToken != presented {
		return domain.PublicUser{}, TokenPair{}, ErrTokenInvalid
	}

	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return domain.PublicUser{}, TokenPair{}, err
	}
	refresh := pair.RefreshToken
	if err := s.users.UpdateRefreshToken(ctx, user.ID, &refresh); err != nil {
		return domain.PublicUser{}, TokenPair{}, err
	}
	return user.Public(), pair, nil
}

// CurrentUser devuelve la vista saneada del usuario autenticado.
func (s *UserService) CurrentUser(ctx context.Context, userID string) (domain.PublicUser, error) {
	if s.users == nil {
		return domain.PublicUser{}, errors.New("user service not configured")
	}
	user, err := s.users.GetByIDPublic(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PublicUser{}, ErrUserNotFound
		}
		return domain.PublicUser{}, err
	}
	return user, nil
}

// UpdateAvatar sube un nuevo avatar y actualiza solo ese campo.
func (s *UserService) UpdateAvatar(ctx context.Context, userID, tempPath string) (domain.PublicUser, error) {
	return s.updateMedia(ctx, userID, tempPath, s.users.UpdateAvatar, ErrMissingAvatar)
}

// UpdateCover sube una nueva portada y actualiza solo ese campo.
func (s *UserService) UpdateCover(ctx context.Context, userID, tempPath string) (domain.PublicUser, error) {
	return s.updateMedia(ctx, userID, tempPath, s.users.UpdateCover, ErrMissingFile)
}

func (s *UserService) updateMedia(ctx context.Context, userID, tempPath string, persist func(context.Context, string, string) error, missingErr error) (domain.PublicUser, error) {
	defer media.Cleanup(s.logger, tempPath)

	if s.users == nil || s.uploader == nil {
		return domain.PublicUser{}, errors.New("user service not configured")
	}
	if tempPath == "" {
		return domain.PublicUser{}, missingErr
	}

	url, err := s.uploader.Upload(ctx, tempPath)
	if err != nil {
		s.logger.Warn("media upload failed", zap.Error(err))
		return domain.PublicUser{}, ErrUploadFailed
	}
	if err := persist(ctx, userID, url); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PublicUser{}, ErrUserNotFound
		}
		return domain.PublicUser{}, err
	}
	return s.CurrentUser(ctx, userID)
}

func normalizeIdentity(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
