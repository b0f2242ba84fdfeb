package dto

import (
	"errors"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

var (
	hasUpper   = regexp.MustCompile(`[A-Z]`)
	hasLower   = regexp.MustCompile(`[a-z]`)
	hasDigit   = regexp.MustCompile(`[0-9]`)
	hasSpecial = regexp.MustCompile(`[^A-Za-z0-9]`)
)

// passwordPolicy enforces the account password rules: at least 12 characters
// with upper, lower, digit and non-alphanumeric characters.
func passwordPolicy(value interface{}) error {
	password, _ := value.(string)
	if len(password) < 12 {
		return errors.New("must be at least 12 characters")
	}
	if !hasUpper.MatchString(password) || !hasLower.MatchString(password) ||
		!hasDigit.MatchString(password) || !hasSpecial.MatchString(password) {
		return errors.New("must contain upper and lower case letters, a digit and a special character")
	}
	return nil
}

// SignupRequest payload for account creation.
type SignupRequest struct {
	EmailAddress    string `json:"email_address"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	PhoneNumber     string `json:"phone_number"`
}

// Validate applies the signup validation rules.
func (r SignupRequest) Validate() error {
	if err := validation.ValidateStruct(&r,
		validation.Field(&r.EmailAddress, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.By(passwordPolicy)),
		validation.Field(&r.ConfirmPassword, validation.Required),
		validation.Field(&r.FirstName, validation.Required),
		validation.Field(&r.LastName, validation.Required),
	); err != nil {
		return err
	}
	if r.Password != r.ConfirmPassword {
		return errors.New("passwords do not match")
	}
	return nil
}

// VerifySignupRequest payload for account activation.
type VerifySignupRequest struct {
	UserID          string `json:"user_id"`
	ActivationToken string `json:"activation_token"`
}

// Validate applies the verification validation rules.
func (r VerifySignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required, is.UUID),
		validation.Field(&r.ActivationToken, validation.Required),
	)
}

// LoginRequest payload for sign-in.
type LoginRequest struct {
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
}

// Validate applies the login validation rules.
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.EmailAddress, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// RefreshTokenRequest payload for token refresh and revocation.
type RefreshTokenRequest struct {
	EncryptedToken string `json:"encrypted_token"`
}

// Validate applies the refresh validation rules.
func (r RefreshTokenRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.EncryptedToken, validation.Required),
	)
}
