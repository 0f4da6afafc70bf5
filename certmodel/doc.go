// Package certmodel describes the content of a certificate to be issued:
// the subject name and the extensions.
//
// Builder is the interface that certificate profiles append to;
// Model is the in-memory implementation that can be rendered as
// an x509.Certificate template and issued by an Issuer.
package certmodel
