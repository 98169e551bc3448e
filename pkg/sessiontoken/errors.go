package sessiontoken

import "fmt"

type ErrConfig struct {
	Msg string
}

func (e ErrConfig) Error() string { return "sessiontoken config: " + e.Msg }

type ErrInvalidToken struct {
	Err error
}

func (e ErrInvalidToken) Error() string {
	return fmt.Sprintf("invalid or expired token: %v", e.Err)
}

func (e ErrInvalidToken) Unwrap() error { return e.Err }
