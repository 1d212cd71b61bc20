// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eiderr

// Code is a stable machine-readable error identifier. The string
// values are part of the wire protocol shared with the extension.
type Code string

// Timeout errors.
const (
	CodeActionTimeout Code = "ERR_WEBEID_ACTION_TIMEOUT"
	CodeUserTimeout   Code = "ERR_WEBEID_USER_TIMEOUT"
	CodeServerTimeout Code = "ERR_WEBEID_SERVER_TIMEOUT"
)

// Health errors.
const (
	CodeVersionMismatch      Code = "ERR_WEBEID_VERSION_MISMATCH"
	CodeVersionInvalid       Code = "ERR_WEBEID_VERSION_INVALID"
	CodeExtensionUnavailable Code = "ERR_WEBEID_EXTENSION_UNAVAILABLE"
	CodeNativeUnavailable    Code = "ERR_WEBEID_NATIVE_UNAVAILABLE"
	CodeUnknownError         Code = "ERR_WEBEID_UNKNOWN_ERROR"
)

// Security errors.
const (
	CodeContextInsecure       Code = "ERR_WEBEID_CONTEXT_INSECURE"
	CodeProtocolInsecure      Code = "ERR_WEBEID_PROTOCOL_INSECURE"
	CodeTLSConnectionBroken   Code = "ERR_WEBEID_TLS_CONNECTION_BROKEN"
	CodeTLSConnectionInsecure Code = "ERR_WEBEID_TLS_CONNECTION_INSECURE"
	CodeTLSConnectionWeak     Code = "ERR_WEBEID_TLS_CONNECTION_WEAK"
	CodeCertificateChanged    Code = "ERR_WEBEID_CERTIFICATE_CHANGED"
	CodeOriginMismatch        Code = "ERR_WEBEID_ORIGIN_MISMATCH"
)

// Third party errors.
const (
	CodeServerRejected Code = "ERR_WEBEID_SERVER_REJECTED"
	CodeUserCancelled  Code = "ERR_WEBEID_USER_CANCELLED"
	CodeNativeFatal    Code = "ERR_WEBEID_NATIVE_FATAL"
)

// Developer mistakes.
const (
	CodeActionPending    Code = "ERR_WEBEID_ACTION_PENDING"
	CodeMissingParameter Code = "ERR_WEBEID_MISSING_PARAMETER"
)

// Category groups codes by who is at fault.
type Category int

const (
	CategoryTimeout Category = iota
	CategoryHealth
	CategorySecurity
	CategoryThirdParty
	CategoryDeveloper
)

func (c Category) String() string {
	switch c {
	case CategoryTimeout:
		return "timeout"
	case CategoryHealth:
		return "health"
	case CategorySecurity:
		return "security"
	case CategoryThirdParty:
		return "third-party"
	case CategoryDeveloper:
		return "developer"
	default:
		return "unknown"
	}
}

// kind is the static description of one code.
type kind struct {
	name     string
	category Category
	message  string

	// wire is true for codes that Deserialize maps to their own kind.
	// UNKNOWN_ERROR is the fallback rather than a table entry, and
	// MISSING_PARAMETER is only ever raised locally.
	wire bool
}

var kinds = map[Code]kind{
	CodeActionTimeout: {"ActionTimeoutError", CategoryTimeout, "extension message timeout", true},
	CodeUserTimeout:   {"UserTimeoutError", CategoryTimeout, "user failed to respond in time", true},
	CodeServerTimeout: {"ServerTimeoutError", CategoryTimeout, "server failed to respond in time", true},

	CodeVersionMismatch:      {"VersionMismatchError", CategoryHealth, "requiresUpdate not provided", true},
	CodeVersionInvalid:       {"VersionInvalidError", CategoryHealth, "invalid version string", true},
	CodeExtensionUnavailable: {"ExtensionUnavailableError", CategoryHealth, "Web-eID extension is not available", true},
	CodeNativeUnavailable:    {"NativeUnavailableError", CategoryHealth, "Web-eID native application is not available", true},
	CodeUnknownError:         {"UnknownError", CategoryHealth, "an unknown error occurred", false},

	CodeContextInsecure:       {"ContextInsecureError", CategorySecurity, "Secure context required, see " + SecureContextsInfoURL, true},
	CodeProtocolInsecure:      {"ProtocolInsecureError", CategorySecurity, "HTTPS required", true},
	CodeTLSConnectionBroken:   {"TlsConnectionBrokenError", CategorySecurity, "TLS connection was broken", true},
	CodeTLSConnectionInsecure: {"TlsConnectionInsecureError", CategorySecurity, "TLS connection was insecure", true},
	CodeTLSConnectionWeak:     {"TlsConnectionWeakError", CategorySecurity, "TLS connection was weak", true},
	CodeCertificateChanged:    {"CertificateChangedError", CategorySecurity, "server certificate changed between requests", true},
	CodeOriginMismatch:        {"OriginMismatchError", CategorySecurity, "URLs for a single operation require the same origin", true},

	CodeServerRejected: {"ServerRejectedError", CategoryThirdParty, "server rejected the request", true},
	CodeUserCancelled:  {"UserCancelledError", CategoryThirdParty, "request was cancelled by the user", true},
	CodeNativeFatal:    {"NativeFatalError", CategoryThirdParty, "native application terminated with a fatal error", true},

	CodeActionPending:    {"ActionPendingError", CategoryDeveloper, "same action for Web-eID browser extension is already pending", true},
	CodeMissingParameter: {"MissingParameterError", CategoryDeveloper, "required parameter missing", false},
}

// SecureContextsInfoURL is linked from the insecure-context message.
const SecureContextsInfoURL = "https://developer.mozilla.org/en-US/docs/Web/Security/Secure_Contexts"

// Known reports whether c is one of the defined codes.
func (c Code) Known() bool {
	_, ok := kinds[c]
	return ok
}

// Category returns the group c belongs to. Unknown codes report
// CategoryHealth, the category of CodeUnknownError.
func (c Code) Category() Category {
	return lookup(c).category
}

// Name returns the conventional error class name for c, for example
// "UserCancelledError".
func (c Code) Name() string {
	return lookup(c).name
}

// DefaultMessage returns the human-readable message used when no
// message is supplied.
func (c Code) DefaultMessage() string {
	return lookup(c).message
}

// Codes returns every defined code.
func Codes() []Code {
	codes := make([]Code, 0, len(kinds))
	for code := range kinds {
		codes = append(codes, code)
	}
	return codes
}

func lookup(c Code) kind {
	if k, ok := kinds[c]; ok {
		return k
	}
	return kinds[CodeUnknownError]
}
