// Package flash carries one-shot messages across a redirect in a signed
// cookie session.
package flash

import (
	"crypto/rand"
	"encoding/gob"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/sessions"
)

const cookieName = "flash"

// Message kinds.
const (
	KindSuccess = "success"
	KindError   = "error"
)

// Message is one notice shown on the next rendered page.
type Message struct {
	Kind string
	Text string
}

var store atomic.Pointer[sessions.CookieStore]

func init() {
	gob.Register(Message{})

	// Until Configure runs, cookies are signed with a per-process key.
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(err)
	}
	Configure(key, false)
}

// Configure sets the signing key and the Secure attribute of the cookie.
func Configure(hashKey []byte, secure bool) {
	cs := sessions.NewCookieStore(hashKey)
	cs.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	store.Store(cs)
}

// session returns the flash session of r. A missing or tampered cookie
// yields an empty session.
func session(r *http.Request) *sessions.Session {
	s, _ := store.Load().Get(r, cookieName)
	return s
}

// Add queues a message for the next page. Messages already queued in this
// request or the incoming cookie are kept.
func Add(w http.ResponseWriter, r *http.Request, kind, text string) {
	s := session(r)
	s.Options.MaxAge = 0
	s.AddFlash(Message{Kind: kind, Text: text})
	_ = s.Save(r, w)
}

// Success queues a success message.
func Success(w http.ResponseWriter, r *http.Request, text string) { Add(w, r, KindSuccess, text) }

// Error queues an error message.
func Error(w http.ResponseWriter, r *http.Request, text string) { Add(w, r, KindError, text) }

// Pop returns the queued messages and expires the cookie.
func Pop(w http.ResponseWriter, r *http.Request) []Message {
	s := session(r)
	raw := s.Flashes()
	if len(raw) == 0 {
		return nil
	}
	s.Options.MaxAge = -1
	_ = s.Save(r, w)

	msgs := make([]Message, 0, len(raw))
	for _, v := range raw {
		if m, ok := v.(Message); ok {
			msgs = append(msgs, m)
		}
	}
	return msgs
}
