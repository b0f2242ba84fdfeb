package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validSignup() SignupRequest {
	return SignupRequest{
		EmailAddress:    "alice@example.com",
		Password:        "Sup3r$ecretPass!",
		ConfirmPassword: "Sup3r$ecretPass!",
		FirstName:       "Alice",
		LastName:        "Walker",
		PhoneNumber:     "+15550100",
	}
}

func TestSignupRequestValid(t *testing.T) {
	assert.NoError(t, validSignup().Validate())
}

func TestSignupRequestPasswordPolicy(t *testing.T) {
	cases := map[string]string{
		"too short":  "Sh0rt$pw",
		"no upper":   "sup3r$ecretpass!",
		"no lower":   "SUP3R$ECRETPASS!",
		"no digit":   "Super$ecretPass!",
		"no special": "Sup3rSecretPass1",
	}
	for name, password := range cases {
		t.Run(name, func(t *testing.T) {
			req := validSignup()
			req.Password = password
			req.ConfirmPassword = password
			assert.Error(t, req.Validate())
		})
	}
}

func TestSignupRequestPasswordMismatch(t *testing.T) {
	req := validSignup()
	req.ConfirmPassword = "Sup3r$ecretPass?"
	assert.Error(t, req.Validate())
}

func TestSignupRequestBadEmail(t *testing.T) {
	req := validSignup()
	req.EmailAddress = "not-an-email"
	assert.Error(t, req.Validate())
}

func TestVerifySignupRequestRequiresUUID(t *testing.T) {
	req := VerifySignupRequest{UserID: "not-a-uuid", ActivationToken: "token"}
	assert.Error(t, req.Validate())

	req.UserID = "a6f1f9a2-5b5c-4a39-9d0e-2f41c7f1a001"
	assert.NoError(t, req.Validate())
}

func TestLoginRequestValidation(t *testing.T) {
	assert.Error(t, LoginRequest{}.Validate())
	assert.NoError(t, LoginRequest{EmailAddress: "alice@example.com", Password: "pw"}.Validate())
}

func TestChangePasswordRequestValidation(t *testing.T) {
	req := ChangePasswordRequest{NewPassword: "N3w$ecretPass!!!", ConfirmNewPassword: "N3w$ecretPass!!!"}
	assert.NoError(t, req.Validate())

	req.ConfirmNewPassword = "different"
	assert.Error(t, req.Validate())
}

func TestChangeRoleRequestValidation(t *testing.T) {
	assert.NoError(t, ChangeRoleRequest{Role: "Admin"}.Validate())
	assert.NoError(t, ChangeRoleRequest{Role: "User"}.Validate())
	assert.Error(t, ChangeRoleRequest{Role: "Root"}.Validate())
	assert.Error(t, ChangeRoleRequest{}.Validate())
}

func TestAddHistoryRequestValidation(t *testing.T) {
	assert.NoError(t, AddHistoryRequest{SearchID: "img-1", SearchType: "IMAGE"}.Validate())
	assert.Error(t, AddHistoryRequest{SearchID: "img-1", SearchType: "VIDEO"}.Validate())
	assert.Error(t, AddHistoryRequest{SearchType: "IMAGE"}.Validate())
}

func TestMediaSearchRequestValidation(t *testing.T) {
	assert.NoError(t, MediaSearchRequest{Query: "forest", PageSize: 20, Page: 1}.Validate())
	assert.Error(t, MediaSearchRequest{}.Validate())
	assert.Error(t, MediaSearchRequest{Query: "forest", PageSize: 100}.Validate())
}
