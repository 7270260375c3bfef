package thimble

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorCode uint16

const (
	ErrCodeUnknown ErrorCode = iota
	ErrCodeUndefinedKey
	ErrCodeUndefinedScope
	ErrCodeDuplicateKey
	ErrCodeDuplicateScope
	ErrCodeMissingDependency
	ErrCodeCircularDependency
	ErrCodeInjectionAlreadyApplied
	ErrCodeScopeWithoutInjection
	ErrCodeScopeAlreadyApplied
	ErrCodeProviderFailed
	ErrCodeInvalidKey
	ErrCodeInvalidProvider
	ErrCodeTypeMismatch
	ErrCodeDisposed
	ErrCodeModuleApplyFailed
)

var codeNames = map[ErrorCode]string{
	ErrCodeUnknown:                 "UNKNOWN",
	ErrCodeUndefinedKey:            "UNDEFINED_KEY",
	ErrCodeUndefinedScope:          "UNDEFINED_SCOPE",
	ErrCodeDuplicateKey:            "DUPLICATE_KEY",
	ErrCodeDuplicateScope:          "DUPLICATE_SCOPE",
	ErrCodeMissingDependency:       "MISSING_DEPENDENCY",
	ErrCodeCircularDependency:      "CIRCULAR_DEPENDENCY",
	ErrCodeInjectionAlreadyApplied: "INJECTION_ALREADY_APPLIED",
	ErrCodeScopeWithoutInjection:   "SCOPE_WITHOUT_INJECTION",
	ErrCodeScopeAlreadyApplied:     "SCOPE_ALREADY_APPLIED",
	ErrCodeProviderFailed:          "PROVIDER_FAILED",
	ErrCodeInvalidKey:              "INVALID_KEY",
	ErrCodeInvalidProvider:         "INVALID_PROVIDER",
	ErrCodeTypeMismatch:            "TYPE_MISMATCH",
	ErrCodeDisposed:                "DISPOSED",
	ErrCodeModuleApplyFailed:       "MODULE_APPLY_FAILED",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", c)
}

// Sentinels for use with errors.Is. Matching is by code only.
var (
	ErrUndefinedKey            = &Error{Code: ErrCodeUndefinedKey}
	ErrUndefinedScope          = &Error{Code: ErrCodeUndefinedScope}
	ErrDuplicateKey            = &Error{Code: ErrCodeDuplicateKey}
	ErrDuplicateScope          = &Error{Code: ErrCodeDuplicateScope}
	ErrMissingDependency       = &Error{Code: ErrCodeMissingDependency}
	ErrCircularDependency      = &Error{Code: ErrCodeCircularDependency}
	ErrInjectionAlreadyApplied = &Error{Code: ErrCodeInjectionAlreadyApplied}
	ErrScopeWithoutInjection   = &Error{Code: ErrCodeScopeWithoutInjection}
	ErrScopeAlreadyApplied     = &Error{Code: ErrCodeScopeAlreadyApplied}
	ErrDisposed                = &Error{Code: ErrCodeDisposed}
)

// Frame is one entry of an auto-construction chain. Index is the position of
// Target in the dependency list of the previous frame, or -1 for the frame
// that started the chain.
type Frame struct {
	Target Key
	Index  int
}

func (f Frame) String() string {
	if f.Index < 0 {
		return KeyName(f.Target)
	}
	return fmt.Sprintf("[%d]%s", f.Index, KeyName(f.Target))
}

type Error struct {
	Code    ErrorCode
	Message string
	Key     Key
	Target  Key
	Index   int
	Scope   *Scope
	Chain   []Frame
	Cause   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s]", e.Code))

	if e.Key != nil {
		b.WriteString(fmt.Sprintf(" key=%q:", KeyName(e.Key)))
	}

	b.WriteString(" ")
	b.WriteString(e.Message)

	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func newError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Index:   -1,
		Cause:   cause,
	}
}

func (e *Error) withKey(key Key) *Error {
	e.Key = key
	return e
}

func errUndefinedKey(key Key) *Error {
	return newError(
		ErrCodeUndefinedKey,
		"no provider or injection declaration found in the container hierarchy",
		nil,
	).withKey(key)
}

func errUndefinedScope(key Key, scope *Scope) *Error {
	e := newError(
		ErrCodeUndefinedScope,
		fmt.Sprintf("no container with scope %s in the invoking container's ancestry", scope),
		nil,
	).withKey(key)
	e.Scope = scope
	return e
}

func errDuplicateKey(key Key) *Error {
	return newError(
		ErrCodeDuplicateKey,
		"key is already registered on this container",
		nil,
	).withKey(key)
}

func errDuplicateScope(scope *Scope) *Error {
	e := newError(
		ErrCodeDuplicateScope,
		fmt.Sprintf("scope %s is already claimed by an ancestor", scope),
		nil,
	)
	e.Scope = scope
	return e
}

func errMissingDependency(dep, target Key, index int, cause error) *Error {
	e := newError(
		ErrCodeMissingDependency,
		fmt.Sprintf("dependency %d of %s cannot be resolved", index, KeyName(target)),
		cause,
	).withKey(dep)
	e.Target = target
	e.Index = index
	return e
}

func errCircularDependency(chain []Frame) *Error {
	names := make([]string, len(chain))
	for i, f := range chain {
		names[i] = f.String()
	}

	e := newError(
		ErrCodeCircularDependency,
		"circular dependency detected: "+strings.Join(names, " -> "),
		nil,
	)
	if len(chain) > 0 {
		e.Key = chain[len(chain)-1].Target
	}
	e.Chain = chain
	return e
}

func errInjectionAlreadyApplied(key Key) *Error {
	return newError(
		ErrCodeInjectionAlreadyApplied,
		"injection is already declared",
		nil,
	).withKey(key)
}

func errScopeWithoutInjection(key Key) *Error {
	return newError(
		ErrCodeScopeWithoutInjection,
		"scope declared without an injection declaration",
		nil,
	).withKey(key)
}

func errScopeAlreadyApplied(key Key) *Error {
	return newError(
		ErrCodeScopeAlreadyApplied,
		"scope is already declared",
		nil,
	).withKey(key)
}

func errProviderFailed(key Key, cause error) *Error {
	return newError(
		ErrCodeProviderFailed,
		"provider returned error",
		cause,
	).withKey(key)
}

func errInvalidKey(key Key) *Error {
	if key == nil {
		return newError(ErrCodeInvalidKey, "key must not be nil", nil)
	}
	return newError(
		ErrCodeInvalidKey,
		fmt.Sprintf("key of type %T is not comparable", key),
		nil,
	)
}

func errInvalidProvider(key Key, reason string) *Error {
	return newError(ErrCodeInvalidProvider, reason, nil).withKey(key)
}

func errTypeMismatch(key Key, want string, got any) *Error {
	return newError(
		ErrCodeTypeMismatch,
		fmt.Sprintf("resolved %T, expected %s", got, want),
		nil,
	).withKey(key)
}

func errDisposed(c *Container) *Error {
	return newError(
		ErrCodeDisposed,
		fmt.Sprintf("container %s is disposed", c.label()),
		nil,
	)
}

func errModuleApplyFailed(moduleName string, cause error) *Error {
	return newError(
		ErrCodeModuleApplyFailed,
		"failed to apply module "+moduleName,
		cause,
	)
}

func IsUndefinedKey(err error) bool {
	return hasCode(err, ErrCodeUndefinedKey)
}

func IsUndefinedScope(err error) bool {
	return hasCode(err, ErrCodeUndefinedScope)
}

func IsDuplicateKey(err error) bool {
	return hasCode(err, ErrCodeDuplicateKey)
}

func IsDuplicateScope(err error) bool {
	return hasCode(err, ErrCodeDuplicateScope)
}

func IsMissingDependency(err error) bool {
	return hasCode(err, ErrCodeMissingDependency)
}

func IsCircularDependency(err error) bool {
	return hasCode(err, ErrCodeCircularDependency)
}

func IsDisposed(err error) bool {
	return hasCode(err, ErrCodeDisposed)
}

// hasCode reports whether the outermost *Error in err's chain carries code.
func hasCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
