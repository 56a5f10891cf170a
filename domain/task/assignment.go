package task

import (
	"bytes"
	"encoding/json"
	"sort"
)

// ParseUserIDs decodes a list of user ids from raw JSON. An absent or null
// value yields an empty list. Anything other than an array of positive
// integers is rejected with an invalid_payload error. Duplicates are dropped
// and the result keeps first-seen order.
func ParseUserIDs(raw json.RawMessage) ([]uint, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []uint{}, nil
	}
	if raw[0] != '[' {
		return nil, invalidPayload("user_ids must be a list of user IDs")
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, invalidPayload("user_ids must be a list of user IDs")
	}

	ids := make([]uint, 0, len(elems))
	seen := make(map[uint]struct{}, len(elems))
	for _, e := range elems {
		e = bytes.TrimSpace(e)
		if len(e) == 0 || e[0] == '"' {
			return nil, invalidPayload("user_ids must contain only integers")
		}
		var n json.Number
		dec := json.NewDecoder(bytes.NewReader(e))
		dec.UseNumber()
		if err := dec.Decode(&n); err != nil {
			return nil, invalidPayload("user_ids must contain only integers")
		}
		v, err := n.Int64()
		if err != nil || v <= 0 {
			return nil, invalidPayload("user_ids must contain only positive integers")
		}
		id := uint(v)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// MissingIDs returns the requested ids absent from found, sorted ascending.
func MissingIDs(requested, found []uint) []uint {
	have := make(map[uint]struct{}, len(found))
	for _, id := range found {
		have[id] = struct{}{}
	}
	missing := []uint{}
	for _, id := range requested {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing
}

// ValidateAssignment checks a bulk assignment request against the ids the
// identity store resolved. An empty request is rejected.
func ValidateAssignment(requested, resolved []uint) error {
	if len(requested) == 0 {
		return ErrMissingUserIDs
	}
	return CheckResolved(requested, resolved)
}

// CheckResolved fails with invalid_user_ids listing every unresolved id.
func CheckResolved(requested, resolved []uint) error {
	if missing := MissingIDs(requested, resolved); len(missing) > 0 {
		return InvalidUserIDs(missing)
	}
	return nil
}
