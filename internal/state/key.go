package state

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// #region key
// Key is the canonical content address of a State. Two independently built
// states with equal field values always map to the same Key.
type Key [sha256.Size]byte

// KeyOf hashes the four State fields in declaration order.
func KeyOf(s State) Key {
	buf := make([]byte, 0, 8+8+8+len(s.PreviousAction)+8)
	buf = binary.BigEndian.AppendUint64(buf, uint64(s.CurrentStep))
	buf = binary.BigEndian.AppendUint64(buf, floatBits(s.ObservedSignal))
	buf = binary.BigEndian.AppendUint64(buf, uint64(len(s.PreviousAction)))
	buf = append(buf, s.PreviousAction...)
	buf = binary.BigEndian.AppendUint64(buf, floatBits(s.AccumulatedReward))
	return sha256.Sum256(buf)
}

// String returns the hex form of the key.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// MarshalText lets keys serve as JSON object keys.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses the hex form produced by MarshalText.
func (k *Key) UnmarshalText(text []byte) error {
	var out Key
	if hex.DecodedLen(len(text)) != len(out) {
		return hex.ErrLength
	}
	if _, err := hex.Decode(out[:], text); err != nil {
		return err
	}
	*k = out
	return nil
}

// floatBits folds -0 into +0 so value-equal floats hash identically.
func floatBits(f float64) uint64 {
	if f == 0 {
		f = 0
	}
	return math.Float64bits(f)
}

// #endregion key
