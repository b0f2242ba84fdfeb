package dto

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
)

// ChangePasswordRequest payload for self-service password change.
type ChangePasswordRequest struct {
	NewPassword        string `json:"new_password"`
	ConfirmNewPassword string `json:"confirm_new_password"`
}

// Validate applies the password change validation rules.
func (r ChangePasswordRequest) Validate() error {
	if err := validation.ValidateStruct(&r,
		validation.Field(&r.NewPassword, validation.Required, validation.By(passwordPolicy)),
		validation.Field(&r.ConfirmNewPassword, validation.Required),
	); err != nil {
		return err
	}
	if r.NewPassword != r.ConfirmNewPassword {
		return errors.New("passwords do not match")
	}
	return nil
}

// ChangeRoleRequest payload for the admin role-change operation.
type ChangeRoleRequest struct {
	Role string `json:"role"`
}

// Validate applies the role change validation rules.
func (r ChangeRoleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Role, validation.Required, validation.In("Admin", "User")),
	)
}

// DeleteAccountRequest payload for the admin delete operation.
type DeleteAccountRequest struct {
	IsPermanent bool `json:"is_permanent"`
}
