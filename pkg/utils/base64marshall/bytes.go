package base64marshall

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
)

// Bytes is a byte slice carried through JSON as a base64 string.
type Bytes []byte

func New(b []byte) Bytes {
	return Bytes(b)
}

func (b Bytes) Bytes() []byte {
	return []byte(b)
}

// String returns b in standard base64 encoding.
func (b Bytes) String() string {
	return base64.StdEncoding.EncodeToString(b)
}

func (b Bytes) MarshalJSON() ([]byte, error) {
	return []byte(`"` + b.String() + `"`), nil
}

func (b *Bytes) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*b = nil
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	dlen := base64.StdEncoding.DecodedLen(len(s))
	decoded := make([]byte, dlen)
	n, err := base64.StdEncoding.Decode(decoded, []byte(s))
	if err != nil {
		return err
	}
	*b = New(decoded[:n])
	return nil
}
