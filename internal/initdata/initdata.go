// Package initdata reads the launch parameters Telegram passes to a Mini App.
//
// The payload is a URL-encoded query string signed by Telegram. Signature checks
// belong to the backend; here it is parsed only to learn who is logging in.
package initdata

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nkiryanov/miniappauth/internal/apperrors"
)

const (
	keyQueryID    = "query_id"
	keyUser       = "user"
	keyAuthDate   = "auth_date"
	keyStartParam = "start_param"
	keyHash       = "hash"
)

type User struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
	PhotoURL     string `json:"photo_url,omitempty"`
	IsPremium    bool   `json:"is_premium,omitempty"`
}

type Data struct {
	QueryID    string
	User       *User
	AuthDate   time.Time
	StartParam string
	Hash       string
}

// Parse init data string
// Fields not listed in Data are ignored
func Parse(raw string) (Data, error) {
	var d Data

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return d, apperrors.ErrEmptyInitData
	}

	values, err := url.ParseQuery(raw)
	if err != nil {
		return d, fmt.Errorf("init data is not a query string. Err: %w", err)
	}

	d.QueryID = values.Get(keyQueryID)
	d.StartParam = values.Get(keyStartParam)
	d.Hash = values.Get(keyHash)
	if d.Hash == "" {
		return d, errors.New("init data has no hash")
	}

	if v := values.Get(keyAuthDate); v != "" {
		sec, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return d, fmt.Errorf("invalid auth_date %q. Err: %w", v, err)
		}
		d.AuthDate = time.Unix(sec, 0).UTC()
	}

	if v := values.Get(keyUser); v != "" {
		u := &User{}
		if err := json.Unmarshal([]byte(v), u); err != nil {
			return d, fmt.Errorf("invalid user payload. Err: %w", err)
		}
		d.User = u
	}

	return d, nil
}

// Encode data back to the query string form
// Keys are sorted, so the result is stable
func Encode(d Data) (string, error) {
	values := url.Values{}

	if d.QueryID != "" {
		values.Set(keyQueryID, d.QueryID)
	}
	if d.User != nil {
		b, err := json.Marshal(d.User)
		if err != nil {
			return "", fmt.Errorf("can't encode user. Err: %w", err)
		}
		values.Set(keyUser, string(b))
	}
	if !d.AuthDate.IsZero() {
		values.Set(keyAuthDate, strconv.FormatInt(d.AuthDate.Unix(), 10))
	}
	if d.StartParam != "" {
		values.Set(keyStartParam, d.StartParam)
	}
	values.Set(keyHash, d.Hash)

	return values.Encode(), nil
}

// TelegramID of the user or zero if init data has no user
func (d Data) TelegramID() int64 {
	if d.User == nil {
		return 0
	}
	return d.User.ID
}
