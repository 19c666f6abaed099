package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"vidtube/internal/domain"
	"vidtube/internal/repository"
)

type mockUserRepo struct {
	usersByID       map[string]domain.User
	createErr       error
	publicReadFails bool
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{usersByID: make(map[string]domain.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.usersByID {
		if existing.Email == user.Email || existing.Username == user.Username {
			return repository.ErrDuplicate
		}
	}
	m.usersByID[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetByIDPublic(_ context.Context, id string) (domain.PublicUser, error) {
	if m.publicReadFails {
		return domain.PublicUser{}, pgx.ErrNoRows
	}
	user, ok := m.usersByID[id]
	if !ok {
		return domain.PublicUser{}, pgx.ErrNoRows
	}
	return user.Public(), nil
}

func (m *mockUserRepo) GetByEmailOrUsername(_ context.Context, email, username string) (domain.User, error) {
	for _, user := range m.usersByID {
		if user.Email == strings.ToLower(email) || user.Username == strings.ToLower(username) {
			return user, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (m *mockUserRepo) UpdateRefreshToken(_ context.Context, id string, token *string) error {
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.RefreshToken = token
	user.UpdatedAt = time.Now().UTC()
	m.usersByID[id] = user
	return nil
}

func (m *mockUserRepo) UpdateAvatar(_ context.Context, id, url string) error {
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.AvatarURL = url
	m.usersByID[id] = user
	return nil
}

func (m *mockUserRepo) UpdateCover(_ context.Context, id, url string) error {
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.CoverURL = url
	m.usersByID[id] = user
	return nil
}

type mockUploader struct {
	failOn   string
	uploaded []string
}

func (m *mockUploader) Upload(_ context.Context, localPath string) (string, error) {
	m.uploaded = append(m.uploaded, localPath)
	if m.failOn != "" && strings.Contains(localPath, m.failOn) {
		return "", errors.New("upload rejected")
	}
	return "https://cdn.example.com/" + filepath.Base(localPath), nil
}

func newTestUserService(repo *mockUserRepo, uploader *mockUploader) *UserService {
	tokens := NewTokenService("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)
	hasher := NewPasswordHasher(bcrypt.MinCost)
	return NewUserService(zap.NewNop(), repo, uploader, hasher, tokens)
}

func writeTemp(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("fake image bytes"), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func registerInput(avatarPath, coverPath string) RegisterInput {
	return RegisterInput{
		Fullname:   "Alice A",
		Email:      "a@x.com",
		Password:   "longenough1",
		Username:   "Alice",
		AvatarPath: avatarPath,
		CoverPath:  coverPath,
	}
}

func TestUserServiceRegister_Success(t *testing.T) {
	repo := newMockUserRepo()
	uploader := &mockUploader{}
	svc := newTestUserService(repo, uploader)
	dir := t.TempDir()
	avatar := writeTemp(t, dir, "avatar.png")
	cover := writeTemp(t, dir, "cover.png")

	user, err := svc.Register(context.Background(), registerInput(avatar, cover))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Username != "alice" || user.Email != "a@x.com" {
		t.Fatalf("expected normalized identity, got %+v", user)
	}
	if user.AvatarURL == "" || user.CoverURL == "" {
		t.Fatalf("expected media urls, got %+v", user)
	}

	// La respuesta saneada no serializa password ni refresh token.
	payload, err := json.Marshal(user)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, forbidden := range []string{"password", "password_hash", "refresh_token"} {
		if _, ok := fields[forbidden]; ok {
			t.Fatalf("sanitized user leaked %q", forbidden)
		}
	}

	stored, err := repo.GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("stored user: %v", err)
	}
	if stored.PasswordHash == "longenough1" || stored.PasswordHash == "" {
		t.Fatalf("password must be stored hashed")
	}

	for _, path := range []string{avatar, cover} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("expected temp file %s to be removed", path)
		}
	}
}

func TestUserServiceRegister_DuplicateCleansTempFiles(t *testing.T) {
	repo := newMockUserRepo()
	uploader := &mockUploader{}
	svc := newTestUserService(repo, uploader)
	dir := t.TempDir()

	first := writeTemp(t, dir, "avatar1.png")
	if _, err := svc.Register(context.Background(), registerInput(first, "")); err != nil {
		t.Fatalf("first register: %v", err)
	}

	second := writeTemp(t, dir, "avatar2.png")
	input := registerInput(second, "")
	input.Username = "bob"
	// Mismo email, distinto username.
	_, err := svc.Register(context.Background(), input)
	if !errors.Is(err, ErrDuplicateUser) {
		t.Fatalf("expected ErrDuplicateUser, got %v", err)
	}
	if _, err := os.Stat(second); !os.IsNotExist(err) {
		t.Fatalf("expected temp file to be removed on duplicate")
	}
}

func TestUserServiceRegister_MissingAvatar(t *testing.T) {
	repo := newMockUserRepo()
	uploader := &mockUploader{}
	svc := newTestUserService(repo, uploader)
	dir := t.TempDir()
	cover := writeTemp(t, dir, "cover.png")

	_, err := svc.Register(context.Background(), registerInput("", cover))
	if !errors.Is(err, ErrMissingAvatar) {
		t.Fatalf("expected ErrMissingAvatar, got %v", err)
	}
	if len(uploader.uploaded) != 0 {
		t.Fatalf("expected no uploads, got %v", uploader.uploaded)
	}
	if _, err := os.Stat(cover); !os.IsNotExist(err) {
		t.Fatalf("expected cover temp file to be removed")
	}
}

func TestUserServiceRegister_AvatarUploadFailure(t *testing.T) {
	repo := newMockUserRepo()
	uploader := &mockUploader{failOn: "avatar"}
	svc := newTestUserService(repo, uploader)
	dir := t.TempDir()
	avatar := writeTemp(t, dir, "avatar.png")

	_, err := svc.Register(context.Background(), registerInput(avatar, ""))
	if !errors.Is(err, ErrUploadFailed) {
		t.Fatalf("expected ErrUploadFailed, got %v", err)
	}
	if len(repo.usersByID) != 0 {
		t.Fatalf("no user must be created on upload failure")
	}
}

func TestUserServiceRegister_CoverUploadBestEffort(t *testing.T) {
	repo := newMockUserRepo()
	uploader := &mockUploader{failOn: "cover"}
	svc := newTestUserService(repo, uploader)
	dir := t.TempDir()
	avatar := writeTemp(t, dir, "avatar.png")
	cover := writeTemp(t, dir, "cover.png")

	user, err := svc.Register(context.Background(), registerInput(avatar, cover))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.CoverURL != "" {
		t.Fatalf("expected empty cover url on best-effort failure, got %q", user.CoverURL)
	}
}

func TestUserServiceRegister_ConcurrentDuplicateCaughtAtStore(t *testing.T) {
	repo := newMockUserRepo()
	repo.createErr = repository.ErrDuplicate
	uploader := &mockUploader{}
	svc := newTestUserService(repo, uploader)
	dir := t.TempDir()
	avatar := writeTemp(t, dir, "avatar.png")

	// El chequeo de existencia no vio nada, pero la constraint sí.
	_, err := svc.Register(context.Background(), registerInput(avatar, ""))
	if !errors.Is(err, ErrDuplicateUser) {
		t.Fatalf("expected ErrDuplicateUser from store constraint, got %v", err)
	}
}

func TestUserServiceRegister_CreationVerificationFailure(t *testing.T) {
	repo := newMockUserRepo()
	repo.publicReadFails = true
	uploader := &mockUploader{}
	svc := newTestUserService(repo, uploader)
	dir := t.TempDir()
	avatar := writeTemp(t, dir, "avatar.png")

	_, err := svc.Register(context.Background(), registerInput(avatar, ""))
	if !errors.Is(err, ErrCreationCheckFailed) {
		t.Fatalf("expected ErrCreationCheckFailed, got %v", err)
	}
}

func registerAlice(t *testing.T, svc *UserService, dir string) domain.PublicUser {
	t.Helper()
	avatar := writeTemp(t, dir, "alice-avatar.png")
	user, err := svc.Register(context.Background(), registerInput(avatar, ""))
	if err != nil {
		t.Fatalf("register alice: %v", err)
	}
	return user
}

func TestUserServiceLogin_PersistsRefreshToken(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestUserService(repo, &mockUploader{})
	registerAlice(t, svc, t.TempDir())

	user, pair, err := svc.Login(context.Background(), "a@x.com", "alice", "longenough1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected both tokens")
	}

	stored, err := repo.GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("stored user: %v", err)
	}
	if stored.RefreshToken == nil || *stored.RefreshToken != pair.RefreshToken {
		t.Fatalf("refresh token must be persisted on the user record")
	}
}

func TestUserServiceLogin_WrongPasswordIndistinguishableFromUnknownUser(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestUserService(repo, &mockUploader{})
	registerAlice(t, svc, t.TempDir())

	_, _, errWrongPass := svc.Login(context.Background(), "a@x.com", "alice", "wrong")
	_, _, errUnknown := svc.Login(context.Background(), "nobody@x.com", "nobody", "whatever")

	if !errors.Is(errWrongPass, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", errWrongPass)
	}
	if !errors.Is(errUnknown, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", errUnknown)
	}
	if errWrongPass.Error() != errUnknown.Error() {
		t.Fatalf("errors must be indistinguishable: %v vs %v", errWrongPass, errUnknown)
	}
}

func TestUserServiceLogin_RequiresAllIdentityFields(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestUserService(repo, &mockUploader{})
	registerAlice(t, svc, t.TempDir())

	if _, _, err := svc.Login(context.Background(), "a@x.com", "", "longenough1"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation without username, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "", "alice", "longenough1"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation without email, got %v", err)
	}
}

func TestUserServiceLogout_ClearsRefreshToken(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestUserService(repo, &mockUploader{})
	registerAlice(t, svc, t.TempDir())

	user, pair, err := svc.Login(context.Background(), "a@x.com", "alice", "longenough1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.Logout(context.Background(), user.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}

	stored, err := repo.GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("stored user: %v", err)
	}
	if stored.RefreshToken != nil {
		t.Fatalf("expected refresh token to be cleared on logout")
	}

	// Un refresh posterior con el token revocado debe fallar.
	if _, _, err := svc.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid after logout, got %v", err)
	}
}

func TestUserServiceRefresh_RotatesStoredToken(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestUserService(repo, &mockUploader{})
	registerAlice(t, svc, t.TempDir())

	_, pair, err := svc.Login(context.Background(), "a@x.com", "alice", "longenough1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	_, rotated, err := svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rotated.RefreshToken == pair.RefreshToken {
		t.Fatalf("expected refresh token rotation")
	}

	// El token anterior ya no coincide con el almacenado.
	if _, _, err := svc.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected old refresh token to be rejected, got %v", err)
	}
}

func TestUserServiceRefresh_RejectsForgedToken(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestUserService(repo, &mockUploader{})
	registerAlice(t, svc, t.TempDir())

	if _, _, err := svc.Refresh(context.Background(), "forged-token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestUserServiceUpdateAvatar_ReplacesURLAndCleansTemp(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestUserService(repo, &mockUploader{})
	dir := t.TempDir()
	user := registerAlice(t, svc, dir)

	newAvatar := writeTemp(t, dir, "new-avatar.png")
	updated, err := svc.UpdateAvatar(context.Background(), user.ID, newAvatar)
	if err != nil {
		t.Fatalf("update avatar: %v", err)
	}
	if updated.AvatarURL == user.AvatarURL {
		t.Fatalf("expected avatar url to change")
	}
	if _, err := os.Stat(newAvatar); !os.IsNotExist(err) {
		t.Fatalf("expected temp file to be removed")
	}
}
