package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	s := New("testsecret", time.Hour, false)
	rec := httptest.NewRecorder()
	if err := s.Issue(rec, 42); err != nil {
		t.Fatalf("Issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	uid, err := s.Parse(req)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if uid != 42 {
		t.Errorf("uid = %d, want 42", uid)
	}
}

func TestParseRejectsForeignSecret(t *testing.T) {
	token, err := New("othersecret", time.Hour, false).Token(7)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New("testsecret", time.Hour, false).ParseToken(token); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("err = %v, want ErrInvalidSession", err)
	}
}

func TestParseRejectsExpired(t *testing.T) {
	s := New("testsecret", time.Minute, false)
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return issued }
	token, err := s.Token(7)
	if err != nil {
		t.Fatal(err)
	}
	s.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := s.ParseToken(token); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("expired token accepted: %v", err)
	}
}

func TestParseMissingOrGarbage(t *testing.T) {
	s := New("testsecret", time.Hour, false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := s.Parse(req); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("missing cookie: err = %v", err)
	}
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "42.abc"})
	if _, err := s.Parse(req); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("garbage cookie: err = %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	s := New("testsecret", time.Hour, false)
	var got uint
	var ok bool
	h := s.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = UserIDFromContext(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if ok {
		t.Fatal("anonymous request carried a user id")
	}

	token, _ := s.Token(5)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})
	h.ServeHTTP(httptest.NewRecorder(), req)
	if !ok || got != 5 {
		t.Errorf("UserIDFromContext = %d,%v want 5,true", got, ok)
	}
}

func TestClear(t *testing.T) {
	rec := httptest.NewRecorder()
	New("testsecret", time.Hour, false).Clear(rec)
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != "" || cookies[0].MaxAge >= 0 {
		t.Errorf("Clear did not expire the cookie: %+v", cookies)
	}
}
