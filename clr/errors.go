package clr

import "github.com/pkg/errors"

// ErrorKind classifies a failure the way spec section 7 of this decoder's
// design partitions them: fatal kinds abort Open entirely, recoverable
// kinds are surfaced through a DiagnosticSink and degrade the offending
// field to absent.
type ErrorKind int

const (
	// InvalidMetadataSignature: the metadata root's magic was not
	// 0x424A5342 ("BSJB").
	InvalidMetadataSignature ErrorKind = iota
	// TruncatedStructure: a fixed-size header ran past the end of its
	// backing byte range.
	TruncatedStructure
	// InvalidCompressedInt: a CompressedInt's lead byte declared a width
	// that ran past the end of the heap.
	InvalidCompressedInt
	// HeapIndexOutOfRange: a heap offset/index pointed past the heap.
	HeapIndexOutOfRange
	// TableIndexOutOfRange: a non-zero simple row index was greater than
	// the target table's row count (index 0 means "no reference").
	TableIndexOutOfRange
	// UnknownCodedIndexTag: a coded index's tag bits selected a
	// placeholder or otherwise invalid candidate table.
	UnknownCodedIndexTag
	// UnknownResourceType: a ResourceSet entry's type name did not match
	// any type this decoder knows how to interpret.
	UnknownResourceType
	// InvalidResourceSet: the resource-set header or one of its sections
	// was malformed beyond recovery for that resource.
	InvalidResourceSet
	// DecodingError: a catch-all for recoverable decode failures that
	// don't fit a more specific kind.
	DecodingError
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidMetadataSignature:
		return "InvalidMetadataSignature"
	case TruncatedStructure:
		return "TruncatedStructure"
	case InvalidCompressedInt:
		return "InvalidCompressedInt"
	case HeapIndexOutOfRange:
		return "HeapIndexOutOfRange"
	case TableIndexOutOfRange:
		return "TableIndexOutOfRange"
	case UnknownCodedIndexTag:
		return "UnknownCodedIndexTag"
	case UnknownResourceType:
		return "UnknownResourceType"
	case InvalidResourceSet:
		return "InvalidResourceSet"
	case DecodingError:
		return "DecodingError"
	default:
		return "Unknown"
	}
}

// FatalError is returned from Open when the image is corrupt enough that
// no useful object model can be produced.
type FatalError struct {
	Kind ErrorKind
	err  error
}

func (e *FatalError) Error() string {
	return e.Kind.String() + ": " + e.err.Error()
}

func (e *FatalError) Unwrap() error { return e.err }

func fatalf(kind ErrorKind, format string, args ...any) error {
	return &FatalError{Kind: kind, err: errors.Errorf(format, args...)}
}

func fatalWrap(kind ErrorKind, err error, message string) error {
	return &FatalError{Kind: kind, err: errors.WithMessage(err, message)}
}

var (
	ErrNoComDescriptor = errors.New("image has no COM descriptor data directory")
)
