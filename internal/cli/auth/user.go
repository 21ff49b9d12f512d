package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// User is the display profile kept next to the token. It carries no
// authorization weight.
type User struct {
	UserID   UserID `json:"user_id"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
}

// UserID is always written as a JSON string but accepts numbers on read,
// since the login endpoint is not strict about its type.
type UserID string

func (id *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = UserID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("user_id must be a string or number: %w", err)
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return fmt.Errorf("user_id must be a string or number: %w", err)
	}
	*id = UserID(n.String())
	return nil
}

func (id UserID) String() string {
	return string(id)
}
