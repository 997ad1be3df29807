package tabletmeta

import "github.com/zeebo/errs"

// Error classes returned by Store operations. Test with the class, for
// example ErrNotFound.Has(err), or with the Is helpers below.
var (
	// ErrInvalidArgument reports misuse: a non primary key meta carrying
	// updates, a reversed version range, a malformed import document.
	ErrInvalidArgument = errs.Class("invalid argument")
	// ErrNotFound reports a missing header or delete vector.
	ErrNotFound = errs.Class("not found")
	// ErrCorruption reports an undecodable key or value.
	ErrCorruption = errs.Class("corruption")
	// ErrInternal reports a failed scan or an unparsable import document.
	ErrInternal = errs.Class("internal error")
	// ErrIO reports a failed backend read or write.
	ErrIO = errs.Class("io error")
	// ErrNotSupported reports an operation the tablet's key model forbids.
	ErrNotSupported = errs.Class("not supported")
)

// IsInvalidArgument reports whether err is in the ErrInvalidArgument class.
func IsInvalidArgument(err error) bool { return ErrInvalidArgument.Has(err) }

// IsNotFound reports whether err is in the ErrNotFound class.
func IsNotFound(err error) bool { return ErrNotFound.Has(err) }

// IsCorruption reports whether err is in the ErrCorruption class.
func IsCorruption(err error) bool { return ErrCorruption.Has(err) }

// IsInternal reports whether err is in the ErrInternal class.
func IsInternal(err error) bool { return ErrInternal.Has(err) }

// IsIO reports whether err is in the ErrIO class.
func IsIO(err error) bool { return ErrIO.Has(err) }

// IsNotSupported reports whether err is in the ErrNotSupported class.
func IsNotSupported(err error) bool { return ErrNotSupported.Has(err) }
