package user

import (
	"testing"
	"time"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
)

func TestMakeVerifyToken(t *testing.T) {
	secretKey := []byte("secret")
	timeout := 3 * 24 * time.Hour

	now := time.Now()
	usr := User{
		ID:        "8d5d4d3a-4d0e-4c6b-9d7e-4f0e8b1c2a3b",
		Name:      "T",
		Username:  "t",
		Email:     "t@test.test",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	}
	_ = usr.SetPassword("pwd")

	validToken := makeToken(usr, secretKey)

	// generate an expired token
	dayLate := timeout + (24 * time.Hour)
	origNow := core.NowFunc
	defer func() { core.NowFunc = origNow }()
	core.NowFunc = func() time.Time { return origNow().Add(-dayLate) }
	expiredToken := makeToken(usr, secretKey)

	// the application clock drives both issuing and checking
	stillValid := verifyToken(usr, expiredToken, secretKey, timeout)
	core.NowFunc = origNow
	if stillValid != nil {
		t.Errorf("verifyToken() on the issuing clock error = %v, want nil", stillValid)
	}

	// a new login invalidates previous tokens
	loggedIn := usr
	loggedIn.LastLogin = now.Add(time.Minute)

	tests := []struct {
		name    string
		usr     User
		token   string
		key     []byte
		wantErr error
	}{
		{name: "no token", usr: usr, wantErr: errInvalidToken},
		{name: "invalid parts len", usr: usr, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", usr: usr, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", usr: usr, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid token", usr: usr, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "other secret", usr: usr, token: validToken, key: []byte("other"), wantErr: errInvalidToken},
		{name: "new login", usr: loggedIn, token: validToken, wantErr: errInvalidToken},
		{name: "expired token", usr: usr, token: expiredToken, wantErr: errTokenExpired},
		{name: "valid token", usr: usr, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := secretKey
			if tt.key != nil {
				key = tt.key
			}
			if err := verifyToken(tt.usr, tt.token, key, timeout); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeDecodeUID(t *testing.T) {
	usr := User{ID: "8d5d4d3a-4d0e-4c6b-9d7e-4f0e8b1c2a3b"}
	id, err := decodeUID(EncodeUID(usr))
	if err != nil {
		t.Fatalf("decodeUID() error = %v", err)
	}
	if id != usr.ID {
		t.Errorf("decodeUID() = %s, want %s", id, usr.ID)
	}
	if _, err = decodeUID("!!"); err == nil {
		t.Error("decodeUID() expected an error")
	}
}
