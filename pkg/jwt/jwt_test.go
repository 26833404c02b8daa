package jwt_test

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/procurement-api/pkg/jwt"
)

const secret = "secreto"

func TestGenerateParse_IdaYVuelta(t *testing.T) {
	tok, err := jwt.Generate(secret, "u-1", "manager", "procurement-api", 5)
	require.NoError(t, err)

	userID, role, err := jwt.Parse(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", userID)
	assert.Equal(t, "manager", role)

	_, _, err = jwt.Parse("otro", tok)
	assert.Error(t, err, "firma con otro secreto")
}

func TestParse_Rechazos(t *testing.T) {
	_, err := jwt.Generate("", "u-1", "admin", "x", 5)
	assert.Error(t, err)

	expired, err := jwt.Generate(secret, "u-1", "admin", "x", -1)
	require.NoError(t, err)
	_, _, err = jwt.Parse(secret, expired)
	assert.ErrorIs(t, err, gojwt.ErrTokenExpired)

	// HS512 con el mismo secreto no se acepta.
	hs512, err := gojwt.NewWithClaims(gojwt.SigningMethodHS512, jwt.Claims{
		RegisteredClaims: gojwt.RegisteredClaims{ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Minute))},
		UserID:           "u-1",
		Role:             "admin",
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	_, _, err = jwt.Parse(secret, hs512)
	assert.Error(t, err)

	// Sin exp.
	noExp, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, jwt.Claims{UserID: "u-1", Role: "admin"}).
		SignedString([]byte(secret))
	require.NoError(t, err)
	_, _, err = jwt.Parse(secret, noExp)
	assert.Error(t, err)
}
