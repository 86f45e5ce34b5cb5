package user_test

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kobu-Labs/nowaster-web-sub002/assets"
	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/user"
	logsvc "github.com/Kobu-Labs/nowaster-web-sub002/services/logger"
)

func newValidator() *validator.Validate {
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(assets.FS, logsvc.NewNopLogger())
	return validate
}

func TestNewUserPasswordPolicy(t *testing.T) {
	validate := newValidator()

	tests := []struct {
		name    string
		pwd     string
		wantTag string
	}{
		{name: "too short", pwd: "Ab1!", wantTag: "pwdminlen"},
		{name: "whitespace", pwd: "Abcd 1234!", wantTag: "pwdnospace"},
		{name: "all numeric", pwd: "1234567890", wantTag: "pwdnotallnum"},
		{name: "no special", pwd: "Abcd12345", wantTag: "pwdcplx"},
		{name: "no upper", pwd: "abcd1234!", wantTag: "pwdcplx"},
		{name: "similar to username", pwd: "Marathon1!", wantTag: "pwdtoosim"},
		{name: "common", pwd: "P@ssw0rd", wantTag: "pwdnocommon"},
		{name: "valid", pwd: "Gr3at-Focus!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := user.NewUser{
				Name:            "Runner",
				Username:        "marathon1",
				Email:           "runner@test.cd",
				Password:        tt.pwd,
				PasswordConfirm: tt.pwd,
			}
			err := validate.Struct(nu)
			if tt.wantTag == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			vErrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok)
			require.Len(t, vErrs, 1)
			assert.Equal(t, "password", vErrs[0].Field())
			assert.Equal(t, tt.wantTag, vErrs[0].Tag())
		})
	}
}

func TestRolesValidation(t *testing.T) {
	validate := newValidator()

	assert.NoError(t, validate.Struct(user.UpdateUser{Roles: []string{user.RoleAdmin}}))
	assert.NoError(t, validate.Struct(user.UpdateUser{}))
	assert.Error(t, validate.Struct(user.UpdateUser{Roles: []string{user.RoleAdmin, "moderator:"}}))
}

func TestUsernameValidation(t *testing.T) {
	validate := newValidator()

	nu := user.NewUser{
		Name:            "Runner",
		Username:        "no spaces",
		Email:           "runner@test.cd",
		Password:        "Gr3at-Focus!",
		PasswordConfirm: "Gr3at-Focus!",
	}
	err := validate.Struct(nu)
	require.Error(t, err)
	vErrs := err.(validator.ValidationErrors)
	assert.Equal(t, "username", vErrs[0].Field())
	assert.Equal(t, "alphanum_", vErrs[0].Tag())
}
