package coverart

import (
	"encoding/json"
	"strconv"
)

// normalizeID turns the id token into its canonical string. The archive has
// emitted image ids both as JSON strings and as JSON integers over time.
func normalizeID(tok json.Token) (string, error) {
	switch v := tok.(type) {
	case string:
		return v, nil
	case json.Number:
		n, err := strconv.ParseUint(string(v), 10, 64)
		if err != nil {
			return "", ErrMalformedIdentifier
		}
		return strconv.FormatUint(n, 10), nil
	default:
		return "", ErrMalformedIdentifier
	}
}
