package types

import "errors"

// Sentinel errors for formatkeeper operations.
var (
	// ErrDocumentUnreadable indicates the document could not be opened or parsed.
	ErrDocumentUnreadable = errors.New("document unreadable")

	// ErrInvalidRuleSpec indicates a rule file failed schema or semantic validation.
	ErrInvalidRuleSpec = errors.New("invalid rule specification")

	// ErrUnsupportedRuleFormat indicates a rule file extension with no decoder.
	ErrUnsupportedRuleFormat = errors.New("unsupported rule file format")

	// ErrDuplicateDefaultStyle indicates more than one style marked is_default.
	ErrDuplicateDefaultStyle = errors.New("more than one style marked is_default")

	// ErrStyleCycle indicates a based_on chain that revisits a style.
	ErrStyleCycle = errors.New("style inheritance cycle")

	// ErrMissingBaseStyle indicates a based_on reference to an undefined style.
	ErrMissingBaseStyle = errors.New("base style not defined")

	// ErrUnknownAttribute indicates a rule attribute with no registered type.
	ErrUnknownAttribute = errors.New("unknown rule attribute")

	// ErrCoercionFailed indicates type coercion failed.
	ErrCoercionFailed = errors.New("type coercion failed")

	// ErrDocumentTooLarge indicates an uploaded document exceeds MaxDocumentSize.
	ErrDocumentTooLarge = errors.New("document exceeds maximum size")
)
