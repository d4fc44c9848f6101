// Package session implementa el ciclo de vida de sesiones split-token.
//
// El token que ve el cliente es "id.secret". Sólo el hash del secret se
// persiste: la validación es comparación pura, el secret nunca se puede
// recuperar del registro.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mbenitez01/citadel/internal/domain/repository"
	"github.com/mbenitez01/citadel/internal/metrics"
	"github.com/mbenitez01/citadel/internal/observability/logger"
	sectoken "github.com/mbenitez01/citadel/internal/security/token"
)

// Errores de validación de sesión, en orden de chequeo.
var (
	// ErrInvalidFormat: el token no tiene la forma id.secret. Se chequea
	// antes de cualquier lookup: un token malformado cuyo id tampoco
	// existiera reporta igualmente formato inválido.
	ErrInvalidFormat = errors.New("session: formato de token inválido")
	// ErrNotFound: el id no corresponde a ninguna sesión.
	ErrNotFound = errors.New("session: sesión no encontrada")
	// ErrInvalidSecret: el secret no coincide con el hash persistido.
	ErrInvalidSecret = errors.New("session: secret inválido")
	// ErrExpired: la sesión superó su TTL. La fila se elimina al detectarlo.
	ErrExpired = errors.New("session: sesión expirada")
)

const secretBytes = 32

// Service emite, valida y revoca sesiones.
type Service struct {
	ttl time.Duration
}

// NewService crea el servicio de sesiones con el TTL configurado.
func NewService(ttl time.Duration) *Service {
	return &Service{ttl: ttl}
}

// Create genera una sesión nueva para el usuario y retorna el token
// "id.secret". El secret en claro se descarta después del hash: ningún
// camino de código puede reconstruirlo desde el storage.
func (s *Service) Create(ctx context.Context, da repository.DataAccess, userID string) (string, error) {
	id := uuid.NewString()
	secret, err := sectoken.GenerateOpaque(secretBytes)
	if err != nil {
		return "", err
	}

	_, err = da.Sessions().Create(ctx, repository.CreateSessionInput{
		ID:         id,
		UserID:     userID,
		SecretHash: sectoken.SHA256Base64URL(secret),
	})
	if err != nil {
		return "", err
	}

	metrics.SessionsIssued.Inc()
	return id + "." + secret, nil
}

// Validate verifica un token de sesión. Orden de chequeo: formato, lookup,
// comparación de secret en tiempo constante, TTL. Una sesión vencida se
// elimina en el momento (reap perezoso).
func (s *Service) Validate(ctx context.Context, da repository.DataAccess, raw string) (*repository.Session, *repository.User, error) {
	id, secret, ok := splitToken(raw)
	if !ok {
		return nil, nil, ErrInvalidFormat
	}

	sess, err := da.Sessions().Get(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	if !sectoken.ConstantTimeEquals(sess.SecretHash, sectoken.SHA256Base64URL(secret)) {
		return nil, nil, ErrInvalidSecret
	}

	if time.Since(sess.CreatedAt) > s.ttl {
		if derr := da.Sessions().Delete(ctx, sess.ID); derr != nil {
			logger.From(ctx).Warn("no se pudo eliminar sesión vencida",
				logger.SessionID(sess.ID),
				logger.Err(derr),
			)
		}
		return nil, nil, ErrExpired
	}

	user, err := da.Users().GetByID(ctx, sess.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	return sess, user, nil
}

// Revoke elimina la sesión. Idempotente: revocar dos veces no es error.
func (s *Service) Revoke(ctx context.Context, da repository.DataAccess, sessionID string) error {
	return da.Sessions().Delete(ctx, sessionID)
}

// splitToken separa "id.secret". Ambas partes deben ser no vacías.
func splitToken(raw string) (id, secret string, ok bool) {
	if raw == "" {
		return "", "", false
	}
	i := strings.IndexByte(raw, '.')
	if i <= 0 || i == len(raw)-1 {
		return "", "", false
	}
	return raw[:i], raw[i+1:], true
}
