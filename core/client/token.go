package client

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidToken is returned for tokens not shaped like "<bot id>:<secret>".
var ErrInvalidToken = errors.New("invalid bot token")

// ValidateToken checks the token format without contacting the API.
func ValidateToken(token string) error {
	if _, err := tokenID(token); err != nil {
		return err
	}
	return nil
}

func tokenID(token string) (int64, error) {
	idPart, secret, ok := strings.Cut(token, ":")
	if !ok || idPart == "" || secret == "" {
		return 0, ErrInvalidToken
	}
	if strings.ContainsAny(token, " \t\r\n") {
		return 0, fmt.Errorf("%w: contains whitespace", ErrInvalidToken)
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad bot id %q", ErrInvalidToken, idPart)
	}
	return id, nil
}
