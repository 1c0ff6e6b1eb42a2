package model

import "fmt"

// ErrorCode identifies a known failure class. The declaration order is the
// enumeration order used to sort findings in a Diagnosis.
type ErrorCode int

const (
	ShortStorage ErrorCode = iota
	UserNameError
	TimeSync
	FileNotFound
	StaleLockFile
	SentLogCorrupted
	DBError
	DBPath
	CannotGetDBSize
	BalanceError
	NetworkError
	ConnectionRefused
	ResourceVanished
	Unknown
)

type codeInfo struct {
	name    string
	tag     string
	comment string
}

var codes = [...]codeInfo{
	ShortStorage:      {"ShortStorage", "short-storage", "The device ran out of free storage space."},
	UserNameError:     {"UserNameError", "user-name-error", "The configured user name is invalid or does not match the account."},
	TimeSync:          {"TimeSync", "time-sync", "The system clock is out of sync with the server."},
	FileNotFound:      {"FileNotFound", "file-not-found", "A required file is missing."},
	StaleLockFile:     {"StaleLockFile", "stale-lock-file", "A stale lock file prevents the application from starting."},
	SentLogCorrupted:  {"SentLogCorrupted", "sent-log-corrupted", "The attached log archive could not be read."},
	DBError:           {"DBError", "db-error", "The local database is corrupted."},
	DBPath:            {"DBPath", "db-path", "The local database path is invalid or inaccessible."},
	CannotGetDBSize:   {"CannotGetDBSize", "cannot-get-db-size", "The size of the local database could not be determined."},
	BalanceError:      {"BalanceError", "balance-error", "The account balance could not be computed."},
	NetworkError:      {"NetworkError", "network-error", "A network error interrupted communication with the server."},
	ConnectionRefused: {"ConnectionRefused", "connection-refused", "The remote host refused the connection."},
	ResourceVanished:  {"ResourceVanished", "resource-vanished", "A connection was closed unexpectedly by the remote peer."},
	Unknown:           {"Unknown", "unknown", "No known issue was found in the attached logs."},
}

// ErrorCodes returns every code in enumeration order.
func ErrorCodes() []ErrorCode {
	out := make([]ErrorCode, len(codes))
	for i := range codes {
		out[i] = ErrorCode(i)
	}
	return out
}

// ParseErrorCode resolves a literal code name. Matching is exact and case-sensitive.
func ParseErrorCode(name string) (ErrorCode, error) {
	for i, c := range codes {
		if c.name == name {
			return ErrorCode(i), nil
		}
	}
	return Unknown, fmt.Errorf("unknown error code %q", name)
}

// Valid reports whether c is a member of the enumeration.
func (c ErrorCode) Valid() bool {
	return c >= 0 && int(c) < len(codes)
}

func (c ErrorCode) String() string {
	if !c.Valid() {
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
	return codes[c].name
}

// Tag returns the stable machine tag used for ticket labels.
func (c ErrorCode) Tag() string {
	if !c.Valid() {
		return codes[Unknown].tag
	}
	return codes[c].tag
}

// Comment returns the default short human comment for the code.
func (c ErrorCode) Comment() string {
	if !c.Valid() {
		return codes[Unknown].comment
	}
	return codes[c].comment
}

// MarshalText encodes the code as its literal name.
func (c ErrorCode) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a literal code name.
func (c *ErrorCode) UnmarshalText(b []byte) error {
	v, err := ParseErrorCode(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
