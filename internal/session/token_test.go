package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

func fixedClock(m *Manager, t time.Time) { m.now = func() time.Time { return t } }

func TestManager_IssueParse(t *testing.T) {
	m := NewManager("secret", time.Hour)

	id, tok, err := m.Issue()
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	got, claims, err := m.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != id {
		t.Fatalf("id=%q want %q", got, id)
	}
	if claims.Issuer != issuer || claims.ExpiresAt == nil {
		t.Fatalf("claims=%+v", claims)
	}
}

func TestManager_ParseRejects(t *testing.T) {
	m := NewManager("secret", time.Hour)
	_, good, err := m.Issue()
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	other := NewManager("other-secret", time.Hour)
	_, foreign, _ := other.Issue()

	expired := NewManager("secret", time.Minute)
	fixedClock(expired, time.Now().Add(-time.Hour))
	_, stale, _ := expired.Issue()

	wrongIssuer, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "0b6c5e1e-8f0c-4f34-9f57-1a3cbbd2c2e1",
		Issuer:  "someone-else",
	}).SignedString([]byte("secret"))

	badSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "../../admin",
		Issuer:  issuer,
	}).SignedString([]byte("secret"))

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"tampered", good + "x"},
		{"other secret", foreign},
		{"expired", stale},
		{"wrong issuer", wrongIssuer},
		{"bad subject", badSubject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := m.Parse(tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("err=%v want ErrInvalidToken", err)
			}
		})
	}
}

func TestManager_Refresh(t *testing.T) {
	start := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	m := NewManager("secret", time.Hour)
	fixedClock(m, start)

	id, tok, err := m.Issue()
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	_, claims, err := m.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if _, renewed, _ := m.Refresh(id, claims); renewed {
		t.Fatalf("fresh token renewed")
	}

	fixedClock(m, start.Add(40*time.Minute))
	fresh, renewed, err := m.Refresh(id, claims)
	if err != nil || !renewed {
		t.Fatalf("renewed=%v err=%v", renewed, err)
	}

	got, c, err := m.Parse(fresh)
	if err != nil || got != id {
		t.Fatalf("parse refreshed: id=%q err=%v", got, err)
	}
	if !c.ExpiresAt.After(claims.ExpiresAt.Time) {
		t.Fatalf("expiry not extended: %v <= %v", c.ExpiresAt, claims.ExpiresAt)
	}
}

func TestMiddleware_ExpiredTokenStartsNewSession(t *testing.T) {
	start := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	m := NewManager("secret", time.Hour)
	fixedClock(m, start)

	oldID, tok, err := m.Issue()
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	fixedClock(m, start.Add(2*time.Hour))

	var seen string
	h := Middleware(m, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderToken, tok)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if seen == "" || seen == oldID {
		t.Fatalf("session id=%q old=%q", seen, oldID)
	}

	fresh := w.Header().Get(HeaderToken)
	got, _, err := m.Parse(fresh)
	if err != nil || got != seen {
		t.Fatalf("fresh token id=%q err=%v want %q", got, err, seen)
	}
}
