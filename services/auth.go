package services

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/CrowderSoup/todo-lists/database"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidToken       = errors.New("invalid token")
)

// AuthService registers users and issues session tokens for them. Nothing in
// the todo routes requires a token yet.
type AuthService struct {
	store     database.Store
	jwtSecret []byte
	tokenTTL  time.Duration
	now       func() time.Time
}

func NewAuthService(store database.Store, secret string, ttl time.Duration) *AuthService {
	return &AuthService{
		store:     store,
		jwtSecret: []byte(secret),
		tokenTTL:  ttl,
		now:       time.Now,
	}
}

// Register creates a user with a unique username.
func (s *AuthService) Register(in database.InsertUser) (database.User, error) {
	if _, err := s.store.GetUserByUsername(in.Username); err == nil {
		return database.User{}, fmt.Errorf("%w: %s", ErrUsernameTaken, in.Username)
	} else if !errors.Is(err, database.ErrNotFound) {
		return database.User{}, err
	}
	return s.store.CreateUser(in), nil
}

// Login checks the credentials and returns a signed token
func (s *AuthService) Login(username, password string) (string, error) {
	user, err := s.store.GetUserByUsername(username)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(user.Password), []byte(password)) != 1 {
		return "", ErrInvalidCredentials
	}
	return s.CreateJWT(user)
}

// CreateJWT generates a JWT token for a user
func (s *AuthService) CreateJWT(user database.User) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      strconv.Itoa(user.ID),
		"username": user.Username,
		"iat":      now.Unix(),
		"exp":      now.Add(s.tokenTTL).Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// VerifyJWT verifies a JWT token and returns the user it was issued for
func (s *AuthService) VerifyJWT(tokenString string) (database.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return database.User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return database.User{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return database.User{}, fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return database.User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	id, err := strconv.Atoi(sub)
	if err != nil {
		return database.User{}, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, sub)
	}

	user, err := s.store.GetUser(id)
	if err != nil {
		return database.User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return user, nil
}
