package request

import "github.com/cockroachdb/errors"

// Error classes of a failed request.
// Returned errors are marked with one of these,
// while the message remains the text reported to the operator.
var (
	// ErrInputFormat is returned for blank or undecodable input
	ErrInputFormat = errors.New("input format error")
	// ErrProofOfPossession is returned when the self-signature does not verify
	ErrProofOfPossession = errors.New("proof of possession error")
	// ErrPublicKeyPolicy is returned when the key violates the policy
	ErrPublicKeyPolicy = errors.New("public key policy error")
	// ErrAttributeExtraction is returned when name or SAN data is unsafe or malformed
	ErrAttributeExtraction = errors.New("attribute extraction error")
)

// Messages
const (
	MsgEmpty          = "empty"
	MsgInvalidData    = "Invalid request data"
	MsgCertNotSelf    = "Invalid certificate input - The provided certificate is not self signed"
	MsgRequestNotSelf = "Invalid PKCS#10 request input - The provided request is not self signed"
)

func mark(class error, msg string) error {
	return errors.Mark(errors.New(msg), class)
}

func markf(class error, format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), class)
}
