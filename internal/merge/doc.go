// Package merge reconciles independently produced name mappings into one
// multi-namespace mapping tree.
//
// The engine works on three operations:
//
//   - MergeNamespace joins a secondary Document onto a primary tree by Token
//     and adds the document's names as a new (or existing) namespace column.
//     Methods that miss the exact join can be matched a second time through a
//     fallback namespace (TryMatchRegardlessOfRenames).
//   - InheritInnerClassNames recovers nested class names that mapping tools
//     omit, by rebuilding them from the first mapped enclosing class.
//   - MigrateFieldDescriptors rewrites the destination descriptor of fields
//     whose type changed upstream, leaving their names alone.
//
// Errors wrap ErrMappingInconsistency or ErrMissingNamespace. With
// Options.Lenient, unmatched records become warnings in the returned
// diagnostic.Diagnostics instead.
package merge
