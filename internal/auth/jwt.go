// AngelaMos | 2026
// jwt.go

package auth

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/lumennodes/portal/internal/config"
	"github.com/lumennodes/portal/internal/core"
	"github.com/lumennodes/portal/internal/middleware"
)

const (
	claimEmail        = "email"
	claimRole         = "role"
	claimTokenVersion = "token_version"
	claimType         = "type"
	sessionTokenType  = "session"
)

// SessionSigner mints and checks the ES256 session tokens carried in the
// auth-token cookie.
type SessionSigner struct {
	private jwk.Key
	public  jwk.Key
	jwks    jwk.Set
	cfg     config.JWTConfig
}

// NewSessionSigner loads the key pair from disk. The key id is derived
// from the public key so it survives restarts.
func NewSessionSigner(cfg config.JWTConfig) (*SessionSigner, error) {
	private, err := readKey(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("load private key: %w", err)
	}

	public, err := private.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("derive public key: %w", err)
	}

	if cfg.PublicKeyPath != "" {
		onDisk, readErr := readKey(cfg.PublicKeyPath)
		if readErr != nil {
			return nil, fmt.Errorf("load public key: %w", readErr)
		}
		if !jwk.Equal(public, onDisk) {
			return nil, errors.New("public key does not match private key")
		}
	}

	kid, err := keyID(public)
	if err != nil {
		return nil, err
	}

	for _, k := range []jwk.Key{private, public} {
		if err := k.Set(jwk.KeyIDKey, kid); err != nil {
			return nil, fmt.Errorf("set key id: %w", err)
		}
		if err := k.Set(jwk.AlgorithmKey, jwa.ES256()); err != nil {
			return nil, fmt.Errorf("set algorithm: %w", err)
		}
	}
	if err := public.Set(jwk.KeyUsageKey, "sig"); err != nil {
		return nil, fmt.Errorf("set key usage: %w", err)
	}

	jwks := jwk.NewSet()
	if err := jwks.AddKey(public); err != nil {
		return nil, fmt.Errorf("build jwks: %w", err)
	}

	return &SessionSigner{private: private, public: public, jwks: jwks, cfg: cfg}, nil
}

func readKey(path string) (jwk.Key, error) {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return jwk.ParseKey(pemBytes, jwk.WithPEM(true))
}

func keyID(public jwk.Key) (string, error) {
	thumb, err := public.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", fmt.Errorf("thumbprint public key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(thumb)[:16], nil
}

// WriteKeyPair generates a P-256 key pair and writes both halves as PEM.
func WriteKeyPair(privatePath, publicPath string) error {
	raw, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	private, err := jwk.Import(raw)
	if err != nil {
		return fmt.Errorf("import private key: %w", err)
	}
	public, err := private.PublicKey()
	if err != nil {
		return fmt.Errorf("derive public key: %w", err)
	}

	privatePEM, err := jwk.Pem(private)
	if err != nil {
		return fmt.Errorf("encode private key: %w", err)
	}
	publicPEM, err := jwk.Pem(public)
	if err != nil {
		return fmt.Errorf("encode public key: %w", err)
	}

	if err := os.WriteFile(privatePath, privatePEM, 0o600); err != nil {
		return fmt.Errorf("write private key: %w", err)
	}
	//nolint:gosec // G306: public half is meant to be readable
	if err := os.WriteFile(publicPath, publicPEM, 0o644); err != nil {
		return fmt.Errorf("write public key: %w", err)
	}
	return nil
}

type SessionClaims struct {
	UserID       string
	Email        string
	Role         string
	TokenVersion int
}

type IssuedSession struct {
	Token     string
	TokenID   string
	ExpiresAt time.Time
}

func (s *SessionSigner) Issue(claims SessionClaims) (*IssuedSession, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.SessionExpire)
	jti := uuid.NewString()

	token, err := jwt.NewBuilder().
		JwtID(jti).
		Issuer(s.cfg.Issuer).
		Audience([]string{s.cfg.Audience}).
		Subject(claims.UserID).
		IssuedAt(now).
		NotBefore(now).
		Expiration(expiresAt).
		Claim(claimEmail, claims.Email).
		Claim(claimRole, claims.Role).
		Claim(claimTokenVersion, claims.TokenVersion).
		Claim(claimType, sessionTokenType).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build session token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.ES256(), s.private))
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	return &IssuedSession{Token: string(signed), TokenID: jti, ExpiresAt: expiresAt}, nil
}

// Parse checks signature, issuer, audience and time bounds. Revocation
// and token_version are the Service's concern.
func (s *SessionSigner) Parse(raw string) (*middleware.AccessTokenClaims, error) {
	token, err := jwt.Parse(
		[]byte(raw),
		jwt.WithKey(jwa.ES256(), s.public),
		jwt.WithValidate(true),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithAudience(s.cfg.Audience),
	)
	if err != nil {
		if errors.Is(err, jwt.TokenExpiredError()) {
			return nil, fmt.Errorf("parse session: %w", core.ErrTokenExpired)
		}
		return nil, fmt.Errorf("parse session: %w", core.ErrTokenInvalid)
	}

	if typ, _ := stringClaim(token, claimType); typ != sessionTokenType {
		return nil, fmt.Errorf("parse session: wrong token type: %w", core.ErrTokenInvalid)
	}

	subject, _ := token.Subject()
	jti, _ := token.JwtID()
	role, roleErr := stringClaim(token, claimRole)
	if subject == "" || jti == "" || roleErr != nil {
		return nil, fmt.Errorf("parse session: incomplete claims: %w", core.ErrTokenInvalid)
	}

	// JSON numbers decode as float64.
	var version float64
	if err := token.Get(claimTokenVersion, &version); err != nil {
		return nil, fmt.Errorf("parse session: no token version: %w", core.ErrTokenInvalid)
	}

	email, _ := stringClaim(token, claimEmail)
	exp, _ := token.Expiration()

	return &middleware.AccessTokenClaims{
		TokenID:      jti,
		UserID:       subject,
		Email:        email,
		Role:         role,
		TokenVersion: int(version),
		ExpiresAt:    exp,
	}, nil
}

func stringClaim(token jwt.Token, name string) (string, error) {
	var v string
	err := token.Get(name, &v)
	return v, err
}

func (s *SessionSigner) JWKSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		//nolint:errcheck // best-effort response
		_ = json.NewEncoder(w).Encode(s.jwks)
	}
}

func (s *SessionSigner) KeyID() string {
	var kid string
	//nolint:errcheck // set in NewSessionSigner
	_ = s.public.Get(jwk.KeyIDKey, &kid)
	return kid
}
