package mapping

import "errors"

var (
	// ErrUnsupportedFormat indicates a mapping document whose format or version is not understood.
	ErrUnsupportedFormat = errors.New("unsupported mapping format")

	// ErrNamespacesFixed indicates an attempt to change the namespace list after it was set.
	ErrNamespacesFixed = errors.New("namespaces already fixed")

	// ErrUnknownOwner indicates a member added to a class that is not in the tree.
	ErrUnknownOwner = errors.New("owner class not in tree")

	// ErrDuplicateClass indicates two classes with the same source name.
	ErrDuplicateClass = errors.New("duplicate class")

	// ErrUnknownNamespace indicates a namespace name that is not part of the tree.
	ErrUnknownNamespace = errors.New("unknown namespace")
)
