// Package util contains any functions used across the application that don't
// match any other package
package util

import (
	"math/rand"
	"time"
	"unsafe"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Code strength levels accepted at room creation.
const (
	CodeSimple = "simple"
	CodeMedium = "medium"
	CodeStrong = "strong"
)

const (
	roomIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	base36Upper    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// No 0/O, 1/l/I and similar look-alikes. Strong codes get read out loud
	// or copied by hand, so every character has to be unambiguous.
	unambiguous = "ABCDEFGHJKMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz23456789"
)

// NewRoomID generates a 15 character lowercase alphanumeric room id.
func NewRoomID() string {
	id, err := gonanoid.Generate(roomIDAlphabet, 15)
	if err != nil {
		panic(err)
	}
	return id
}

// NewCode generates an access code at the given strength level. Unknown
// strengths fall back to medium.
func NewCode(strength string) string {
	var alphabet string
	var length int

	switch strength {
	case CodeSimple:
		alphabet, length = base36Upper, 4
	case CodeStrong:
		alphabet, length = unambiguous, 8
	default:
		alphabet, length = base36Upper, 6
	}

	code, err := gonanoid.Generate(alphabet, length)
	if err != nil {
		panic(err)
	}
	return code
}

const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
const (
	letterIdxBits = 6                    // 6 bits to represent a letter index
	letterIdxMask = 1<<letterIdxBits - 1 // All 1-bits, as many as letterIdxBits
	letterIdxMax  = 63 / letterIdxBits   // # of letter indices fitting in 63 bits
)

var src = rand.NewSource(time.Now().UnixNano())

// RandStr is the fastest random string generator possible (from what i could find)
// Source: https://stackoverflow.com/questions/22892120/how-to-generate-a-random-string-of-a-fixed-length-in-go
func RandStr(n int) string {
	b := make([]byte, n)
	for i, cache, remain := n-1, src.Int63(), letterIdxMax; i >= 0; {
		if remain == 0 {
			cache, remain = src.Int63(), letterIdxMax
		}
		if idx := int(cache & letterIdxMask); idx < len(charset) {
			b[i] = charset[idx]
			i--
		}
		cache >>= letterIdxBits
		remain--
	}

	return *(*string)(unsafe.Pointer(&b))
}
