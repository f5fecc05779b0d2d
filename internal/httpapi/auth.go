package httpapi

import (
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"pasmi/terminal/internal/domain"
)

const RoleOperator = "operator"

var (
	ErrInvalidCredentials = errors.New("credenciales inválidas")
	ErrEmailNotAllowed    = errors.New("correo no autorizado")
)

// AuthManager checks the terminal operator's credentials and issues access
// tokens. There is a single operator account configured at startup.
type AuthManager struct {
	secret    []byte
	tokenTTL  time.Duration
	username  string
	password  string
	allowlist map[string]struct{}
	now       func() time.Time
}

type terminalClaims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, username string, password string, allowedEmails []string) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	if !isPasswordHash(password) && strings.TrimSpace(password) != "" {
		if hashed, err := hashPassword(password); err == nil {
			password = hashed
		}
	}
	allow := make(map[string]struct{}, len(allowedEmails))
	for _, email := range allowedEmails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			allow[email] = struct{}{}
		}
	}
	return &AuthManager{
		secret:    []byte(secret),
		tokenTTL:  tokenTTL,
		username:  strings.ToLower(strings.TrimSpace(username)),
		password:  password,
		allowlist: allow,
		now:       time.Now,
	}
}

// Login verifies the operator credentials. When an email allowlist is
// configured the request must also carry one of those addresses.
func (a *AuthManager) Login(req domain.LoginRequest) (domain.LoginResponse, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username == "" || username != a.username || !verifyPassword(a.password, req.Password) {
		return domain.LoginResponse{}, ErrInvalidCredentials
	}
	if len(a.allowlist) > 0 {
		if _, ok := a.allowlist[strings.ToLower(strings.TrimSpace(req.Email))]; !ok {
			return domain.LoginResponse{}, ErrEmailNotAllowed
		}
	}

	expiresAt := a.now().UTC().Add(a.tokenTTL)
	token, err := a.sign(username, RoleOperator, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}
	return domain.LoginResponse{
		AccessToken: token,
		Role:        RoleOperator,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &terminalClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("token inválido o vencido")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("token sin usuario")
	}
	return domain.Actor{Username: sub, Role: claims.Role}, nil
}

func (a *AuthManager) sign(username, role string, expiresAt time.Time) (string, error) {
	claims := terminalClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwtlib.NewNumericDate(a.now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "pasmi",
		},
		Role: role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
