package providers

import (
	"github.com/samber/do/v2"

	"github.com/verbetes/verbete-server/internal/auth"
	"github.com/verbetes/verbete-server/internal/config"
	"github.com/verbetes/verbete-server/internal/logger"
)

// AuthKey wraps the token key bytes.
type AuthKey []byte

// ProvideAuthKey decodes the configured key, or loads or generates one in
// the data directory.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	var (
		key    []byte
		err    error
		source = "config"
	)
	if cfg.Auth.KeyHex != "" {
		key, err = auth.DecodeKey(cfg.Auth.KeyHex)
	} else {
		source = "data directory"
		key, err = auth.LoadOrGenerateKey(cfg.Data.BasePath)
	}
	if err != nil {
		return nil, err
	}

	log.Info("Authentication key loaded",
		"source", source,
		"access_token_duration", cfg.Auth.AccessTokenDuration,
	)

	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	key := do.MustInvoke[AuthKey](i)

	return auth.NewTokenService(key, cfg.Auth.AccessTokenDuration)
}
