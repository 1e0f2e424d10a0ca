package wallet

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
	"golang.org/x/crypto/blake2b"
)

const DefaultSS58Prefix = 214

var (
	ErrInvalidPrefix  = errors.New("ss58 prefix out of range")
	ErrInvalidAddress = errors.New("invalid ss58 address")
)

var ss58Context = []byte("SS58PRE")

// SS58Deriver derives a deterministic ed25519 account from "//<id>" and
// renders its public key as an SS58 address.
type SS58Deriver struct {
	Prefix uint16
}

func NewSS58Deriver(prefix int) (*SS58Deriver, error) {
	if prefix < 0 || prefix >= 16384 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPrefix, prefix)
	}
	return &SS58Deriver{Prefix: uint16(prefix)}, nil
}

func (d *SS58Deriver) Derive(ctx context.Context, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	seed := blake2b.Sum256([]byte("//" + id))
	pub := ed25519.NewKeyFromSeed(seed[:]).Public().(ed25519.PublicKey)
	return EncodeSS58(pub, d.Prefix)
}

func encodePrefix(prefix uint16) ([]byte, error) {
	switch {
	case prefix < 64:
		return []byte{byte(prefix)}, nil
	case prefix < 16384:
		first := byte((prefix&0x00FC)>>2) | 0x40
		second := byte(prefix>>8) | byte((prefix&0x0003)<<6)
		return []byte{first, second}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrInvalidPrefix, prefix)
}

func checksum(payload []byte) []byte {
	h, _ := blake2b.New512(nil)
	h.Write(ss58Context)
	h.Write(payload)
	return h.Sum(nil)[:2]
}

func EncodeSS58(pub []byte, prefix uint16) (string, error) {
	pre, err := encodePrefix(prefix)
	if err != nil {
		return "", err
	}
	payload := make([]byte, 0, len(pre)+len(pub)+2)
	payload = append(payload, pre...)
	payload = append(payload, pub...)
	payload = append(payload, checksum(payload)...)
	return base58.Encode(payload), nil
}

// DecodeSS58 returns the network prefix and public key of a 32-byte account
// address.
func DecodeSS58(address string) (uint16, []byte, error) {
	raw := base58.Decode(address)
	if len(raw) < 35 {
		return 0, nil, ErrInvalidAddress
	}

	var prefix uint16
	prefixLen := 1
	if raw[0]&0x40 != 0 {
		prefixLen = 2
		lower := (raw[0] << 2) | (raw[1] >> 6)
		upper := raw[1] & 0x3F
		prefix = uint16(lower) | uint16(upper)<<8
	} else {
		prefix = uint16(raw[0])
	}

	if len(raw) != prefixLen+32+2 {
		return 0, nil, ErrInvalidAddress
	}
	body := raw[:len(raw)-2]
	if !bytes.Equal(checksum(body), raw[len(raw)-2:]) {
		return 0, nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
	}
	return prefix, body[prefixLen:], nil
}
