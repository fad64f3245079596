package intake

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ClearPromptMessage - текст подтверждения массового удаления.
const ClearPromptMessage = "Are you sure you want to remove all files?"

var (
	ErrNothingToClear = errors.New("nothing to clear")
	ErrInvalidPrompt  = errors.New("clear confirmation is invalid or expired")
)

const clearAudience = "workspace-clear"

// Prompt - выданный запрос подтверждения.
type Prompt struct {
	Token     string    `json:"token"`
	Message   string    `json:"message"`
	Files     int       `json:"files"`
	ExpiresAt time.Time `json:"expires_at"`
}

// confirmer выпускает одноразовые подписанные токены подтверждения.
// Идентификатор токена (jti) хранится в памяти до использования или отмены.
type confirmer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	pending map[string]time.Time
}

func newConfirmer(secret string, ttl time.Duration, now func() time.Time) *confirmer {
	return &confirmer{
		secret:  []byte(secret),
		ttl:     ttl,
		now:     now,
		pending: make(map[string]time.Time),
	}
}

func (c *confirmer) issue(files int) (Prompt, error) {
	now := c.now()
	exp := now.Add(c.ttl)
	jti := uuid.NewString()

	claims := jwt.RegisteredClaims{
		ID:        jti,
		Audience:  jwt.ClaimStrings{clearAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return Prompt{}, fmt.Errorf("intake: не удалось подписать токен: %w", err)
	}

	c.mu.Lock()
	c.gcLocked(now)
	c.pending[jti] = exp
	c.mu.Unlock()

	return Prompt{Token: signed, Message: ClearPromptMessage, Files: files, ExpiresAt: exp}, nil
}

// consume проверяет подпись и срок и снимает токен с учёта. Повторное использование невозможно.
func (c *confirmer) consume(token string) error {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(clearAudience),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPrompt, err)
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid || claims.ID == "" {
		return ErrInvalidPrompt
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[claims.ID]; !ok {
		return ErrInvalidPrompt
	}
	delete(c.pending, claims.ID)
	return nil
}

func (c *confirmer) gcLocked(now time.Time) {
	for jti, exp := range c.pending {
		if !now.Before(exp) {
			delete(c.pending, jti)
		}
	}
}

func (c *confirmer) outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
