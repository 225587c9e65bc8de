package websocket

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingInitData   = errors.New("telegram init data required")
	ErrInitDataSignature = errors.New("telegram init data signature mismatch")
	ErrInitDataExpired   = errors.New("telegram init data expired")
	ErrInitDataNoUser    = errors.New("telegram init data carries no user")
)

// InitDataVerifier reads the Telegram web app init data a client presents when
// it opens a session. The signature and age are only checked when a bot token
// is configured.
type InitDataVerifier struct {
	botToken string
	maxAge   time.Duration
	now      func() time.Time
}

func NewInitDataVerifier(botToken string, maxAge time.Duration) *InitDataVerifier {
	return &InitDataVerifier{
		botToken: botToken,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// Verify returns the telegram id of the user the init data was issued for.
func (v *InitDataVerifier) Verify(initData string) (int64, error) {
	if initData == "" {
		return 0, ErrMissingInitData
	}
	values, err := url.ParseQuery(initData)
	if err != nil {
		return 0, err
	}

	if v.botToken != "" {
		if !hmac.Equal([]byte(signInitData(values, v.botToken)), []byte(values.Get("hash"))) {
			return 0, ErrInitDataSignature
		}
		if v.maxAge > 0 {
			authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
			if err != nil || v.now().Sub(time.Unix(authDate, 0)) > v.maxAge {
				return 0, ErrInitDataExpired
			}
		}
	}

	var user struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil || user.ID <= 0 {
		return 0, ErrInitDataNoUser
	}
	return user.ID, nil
}

// signInitData computes the web app hash: HMAC-SHA256 over the sorted
// key=value lines, keyed by HMAC-SHA256("WebAppData", botToken).
func signInitData(values url.Values, botToken string) string {
	lines := make([]string, 0, len(values))
	for key := range values {
		if key == "hash" {
			continue
		}
		lines = append(lines, key+"="+values.Get(key))
	}
	sort.Strings(lines)

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}
