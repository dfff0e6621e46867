package ziptype

import "errors"

// Sentinel errors shared by the extraction packages.
var (
	// ErrPasswordRequired is returned when an encrypted entry is read without a password.
	ErrPasswordRequired = errors.New("password required")

	// ErrInvalidPassword is returned when the password does not decrypt an entry.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrChecksum is returned when decoded content does not match its CRC-32.
	ErrChecksum = errors.New("checksum mismatch")

	// ErrUnsupportedMethod is returned for compression methods that cannot be decoded.
	ErrUnsupportedMethod = errors.New("unsupported compression method")

	// ErrUnsupportedEncryption is returned for encryption schemes that cannot be decoded.
	ErrUnsupportedEncryption = errors.New("unsupported encryption")

	// ErrInsecurePath describes an entry name that would escape the output
	// directory. Such entries are dropped from the plan and logged with it.
	ErrInsecurePath = errors.New("insecure entry path")

	// ErrConflictingOptions is returned when mutually exclusive options are combined.
	ErrConflictingOptions = errors.New("conflicting options")

	// ErrIntegrity is returned by integrity tests when at least one entry fails.
	ErrIntegrity = errors.New("archive integrity check failed")

	// ErrSizeOverflow is returned when a size value does not fit the target type.
	ErrSizeOverflow = errors.New("size overflow")
)

// IsPasswordError reports whether err is recoverable by supplying a
// (different) password.
func IsPasswordError(err error) bool {
	return errors.Is(err, ErrPasswordRequired) || errors.Is(err, ErrInvalidPassword)
}
