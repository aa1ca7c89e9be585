package initdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/miniappauth/internal/apperrors"
)

func TestInitData_Parse(t *testing.T) {
	t.Run("parse ok", func(t *testing.T) {
		raw := "query_id=AAHdF6IQAAAAAN0XohDhrOrc" +
			"&user=%7B%22id%22%3A279058397%2C%22first_name%22%3A%22Vladislav%22%2C%22username%22%3A%22vdkfrost%22%2C%22language_code%22%3A%22ru%22%7D" +
			"&auth_date=1662771648" +
			"&hash=c501b71e775f74ce10e377dea85a7ea24ecd640b223ea86dfe453e0eaed2e2b2"

		d, err := Parse(raw)

		require.NoError(t, err)
		require.Equal(t, "AAHdF6IQAAAAAN0XohDhrOrc", d.QueryID)
		require.NotNil(t, d.User)
		require.Equal(t, int64(279058397), d.User.ID)
		require.Equal(t, int64(279058397), d.TelegramID())
		require.Equal(t, "Vladislav", d.User.FirstName)
		require.Equal(t, "vdkfrost", d.User.Username)
		require.Equal(t, "ru", d.User.LanguageCode)
		require.Equal(t, time.Unix(1662771648, 0).UTC(), d.AuthDate)
		require.Equal(t, "c501b71e775f74ce10e377dea85a7ea24ecd640b223ea86dfe453e0eaed2e2b2", d.Hash)
	})

	t.Run("without user ok", func(t *testing.T) {
		d, err := Parse("auth_date=1662771648&hash=abc")

		require.NoError(t, err)
		require.Nil(t, d.User)
		require.Zero(t, d.TelegramID())
	})

	t.Run("empty fail", func(t *testing.T) {
		_, err := Parse("   ")

		require.ErrorIs(t, err, apperrors.ErrEmptyInitData)
	})

	tests := []struct {
		name string
		raw  string
	}{
		{name: "no hash", raw: "auth_date=1662771648"},
		{name: "bad auth date", raw: "auth_date=yesterday&hash=abc"},
		{name: "bad user", raw: "user=%7Bnot-json&hash=abc"},
		{name: "bad escaping", raw: "user=%zz&hash=abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name+" fail", func(t *testing.T) {
			_, err := Parse(tt.raw)

			require.Error(t, err)
		})
	}
}

func TestInitData_Encode(t *testing.T) {
	d := Data{
		QueryID:    "q1",
		User:       &User{ID: 100500, FirstName: "Nik", Username: "nk"},
		AuthDate:   time.Unix(1700000000, 0).UTC(),
		StartParam: "ref",
		Hash:       "deadbeef",
	}

	raw, err := Encode(d)
	require.NoError(t, err)

	got, err := Parse(raw)
	require.NoError(t, err)
	require.Equal(t, d, got, "encoded init data should parse back to the same value")
}
