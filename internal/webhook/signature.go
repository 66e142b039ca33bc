// Copyright 2025 The Threadrelay Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

var (
	// ErrMissingSignature means the request carried no signature header.
	ErrMissingSignature = errors.New("missing webhook signature")

	// ErrSignatureMismatch means the signature was malformed or did not
	// match the payload.
	ErrSignatureMismatch = errors.New("webhook signature mismatch")

	// ErrNoSecret means no webhook secret is configured, so nothing can be
	// verified.
	ErrNoSecret = errors.New("webhook secret not configured")
)

// VerifySignature verifies the HMAC-SHA256 signature of a GitHub webhook payload.
//
// The signature should be in the format "sha256=<hex-encoded-hmac>" and is
// computed over the exact bytes received, never over re-encoded JSON.
func VerifySignature(payload []byte, signature string, secret string) error {
	if signature == "" {
		return ErrMissingSignature
	}
	if secret == "" {
		return ErrNoSecret
	}

	receivedMAC, ok := strings.CutPrefix(signature, "sha256=")
	if !ok {
		return ErrSignatureMismatch
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expectedMAC := hex.EncodeToString(mac.Sum(nil))

	// Constant-time comparison to prevent timing attacks
	if !hmac.Equal([]byte(strings.ToLower(receivedMAC)), []byte(expectedMAC)) {
		return ErrSignatureMismatch
	}
	return nil
}

// Sign returns the X-Hub-Signature-256 header value for payload.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
