package auth

import (
	"errors"

	"github.com/zalando/go-keyring"
)

type KeyringStore struct {
	serviceName string
}

func NewKeyringStore(serviceName string) *KeyringStore {
	if serviceName == "" {
		serviceName = ServiceName
	}
	return &KeyringStore{serviceName: serviceName}
}

func (k *KeyringStore) SetToken(backend string, token string) error {
	return keyring.Set(k.serviceName, NormalizeBackend(backend), token)
}

func (k *KeyringStore) GetToken(backend string) (string, error) {
	token, err := keyring.Get(k.serviceName, NormalizeBackend(backend))
	if err == nil {
		return token, nil
	}
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrTokenNotFound
	}
	return "", err
}

func (k *KeyringStore) DeleteToken(backend string) error {
	err := keyring.Delete(k.serviceName, NormalizeBackend(backend))
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrTokenNotFound
	}
	return err
}
