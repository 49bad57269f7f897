// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package router

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"time"
)

// nonceLifetime bounds how long a generated nonce is accepted, per the
// recommendation in RFC 5389 §10.2 that a nonce have a reasonably short
// lifetime.
const nonceLifetime = time.Hour

const nonceHMACLen = 12

// nonceSource mints and validates NONCE values without server-side
// storage: the nonce carries its own issue time and an HMAC over that
// time, so Validate only needs the shared server secret, not a lookup
// table keyed by the nonce string. This avoids the unbounded memory growth
// of a stored-nonce table under churn from clients that never complete
// the long-term credential handshake.
type nonceSource struct {
	secret []byte
}

func newNonceSource(secret []byte) *nonceSource {
	return &nonceSource{secret: secret}
}

// Generate returns a fresh nonce stamped with the current time.
func (s *nonceSource) Generate(now time.Time) string {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(now.Unix()))

	mac := hmac.New(sha256.New, s.secret)
	mac.Write(ts[:])
	sum := mac.Sum(nil)[:nonceHMACLen]

	buf := make([]byte, 0, 8+nonceHMACLen)
	buf = append(buf, ts[:]...)
	buf = append(buf, sum...)
	return base64.RawURLEncoding.EncodeToString(buf)
}

// Validate reports whether nonce was issued by this source and has not yet
// expired.
func (s *nonceSource) Validate(nonce string, now time.Time) bool {
	raw, err := base64.RawURLEncoding.DecodeString(nonce)
	if err != nil || len(raw) != 8+nonceHMACLen {
		return false
	}
	ts := raw[:8]
	got := raw[8:]

	mac := hmac.New(sha256.New, s.secret)
	mac.Write(ts)
	want := mac.Sum(nil)[:nonceHMACLen]
	if !hmac.Equal(got, want) {
		return false
	}

	issued := time.Unix(int64(binary.BigEndian.Uint64(ts)), 0)
	return now.Before(issued.Add(nonceLifetime)) && !now.Before(issued)
}
