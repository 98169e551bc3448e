// Package sessiontoken serializes the Session capability as a PASETO
// v4.local token so the excluded UI layer can hold it between calls without
// the core keeping any server-side session state.
package sessiontoken

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	paseto "aidanwoods.dev/go-paseto"

	"github.com/carelog/carelog_backend/internal/model"
	"github.com/carelog/carelog_backend/pkg/reqctx"
)

type Config struct {
	// KeyHex is the 64-char hex encoding of the 32-byte symmetric token
	// key. Distinct from the store encryption key.
	KeyHex string

	Issuer   string
	Audience string

	AccessTTL time.Duration
}

type Manager struct {
	cfg   Config
	key   paseto.V4SymmetricKey
	parse paseto.Parser
}

func New(cfg Config) (*Manager, error) {
	if cfg.Issuer == "" {
		return nil, ErrConfig{Msg: "Issuer is required"}
	}
	if cfg.Audience == "" {
		return nil, ErrConfig{Msg: "Audience is required"}
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 30 * time.Minute
	}

	key, err := paseto.V4SymmetricKeyFromHex(cfg.KeyHex)
	if err != nil {
		return nil, ErrConfig{Msg: "invalid symmetric key: " + err.Error()}
	}

	p := paseto.NewParser()
	p.AddRule(paseto.IssuedBy(cfg.Issuer))
	p.AddRule(paseto.ForAudience(cfg.Audience))
	p.AddRule(paseto.NotExpired())

	return &Manager{cfg: cfg, key: key, parse: p}, nil
}

// AccessTTL reports how long issued tokens stay valid.
func (m *Manager) AccessTTL() time.Duration { return m.cfg.AccessTTL }

// Issue mints an access token carrying the session claims.
func (m *Manager) Issue(sess *reqctx.Session) (string, error) {
	if sess == nil {
		return "", ErrConfig{Msg: "nil session"}
	}
	now := time.Now()

	tok := paseto.NewToken()
	tok.SetIssuer(m.cfg.Issuer)
	tok.SetAudience(m.cfg.Audience)
	tok.SetJti(randHex(16))
	tok.SetIssuedAt(now)
	tok.SetNotBefore(now)
	tok.SetExpiration(now.Add(m.cfg.AccessTTL))
	tok.SetSubject(sess.UserID)

	tok.SetString("hid", sess.HospitalID)
	tok.SetString("rol", string(sess.Role))

	return tok.V4Encrypt(m.key, nil), nil
}

// Verify parses a token and reconstructs the Session capability.
func (m *Manager) Verify(tokenStr string) (*reqctx.Session, error) {
	tok, err := m.parse.ParseV4Local(m.key, tokenStr, nil)
	if err != nil {
		return nil, ErrInvalidToken{Err: err}
	}

	sub, err := tok.GetSubject()
	if err != nil {
		return nil, ErrInvalidToken{Err: err}
	}
	hid, err := tok.GetString("hid")
	if err != nil {
		return nil, ErrInvalidToken{Err: err}
	}
	rol, err := tok.GetString("rol")
	if err != nil {
		return nil, ErrInvalidToken{Err: err}
	}
	role := model.Role(rol)
	if !role.Valid() {
		return nil, ErrInvalidToken{Err: errors.New("unknown role claim")}
	}

	return &reqctx.Session{UserID: sub, HospitalID: hid, Role: role}, nil
}

func randHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
