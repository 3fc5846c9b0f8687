// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"crypto/rand"
	"math/big"

	"github.com/samber/oops"
)

// Temporary password bounds.
const (
	TempPasswordMinLength = 8
	TempPasswordMaxLength = 16
)

const (
	tempPasswordLetters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	tempPasswordDigits  = "0123456789"
)

// GenerateTemporaryPassword returns a random password of letters and digits
// containing at least one digit. Its length lies in both
// [TempPasswordMinLength, TempPasswordMaxLength] and the policy bounds, so
// the result always passes policy.Validate.
func GenerateTemporaryPassword(policy PasswordPolicy) (string, error) {
	lo, hi, ok := policy.temporaryLengths()
	if !ok {
		return "", oops.Code(CodePolicyInvalid).
			With("min", policy.MinLength).
			With("max", policy.MaxLength).
			Errorf("password policy admits no temporary password length")
	}

	span, err := randIndex(hi - lo + 1)
	if err != nil {
		return "", err
	}
	length := lo + span

	alphabet := tempPasswordLetters + tempPasswordDigits
	out := make([]byte, length)
	for i := range out {
		idx, err := randIndex(len(alphabet))
		if err != nil {
			return "", err
		}
		out[i] = alphabet[idx]
	}

	pos, err := randIndex(length)
	if err != nil {
		return "", err
	}
	digit, err := randIndex(len(tempPasswordDigits))
	if err != nil {
		return "", err
	}
	out[pos] = tempPasswordDigits[digit]

	return string(out), nil
}

func randIndex(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, oops.Code("TEMP_PASSWORD_GENERATE_FAILED").Wrap(err)
	}
	return int(v.Int64()), nil
}
