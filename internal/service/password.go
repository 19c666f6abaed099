package service

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher encapsula hash y verificación bcrypt. El hash se
// invoca una sola vez, en el punto donde se fija la contraseña; nunca
// como hook implícito de guardado.
type PasswordHasher struct {
	cost int
}

func NewPasswordHasher(cost int) PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return PasswordHasher{cost: cost}
}

// Hash genera un hash bcrypt con salt del texto plano.
func (h PasswordHasher) Hash(plain string) (string, error) {
	hashBytes, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashBytes), nil
}

// Verify compara en tiempo constante. Un mismatch devuelve false sin
// error; solo un hash almacenado malformado produce error.
func (h PasswordHasher) Verify(plain, hashed string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}
