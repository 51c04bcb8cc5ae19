// Package mapping provides the multi-namespace mapping tree, the structural
// join key used to correlate records across formats, descriptor remapping,
// and readers/writers for the line-oriented mapping formats.
//
// # Tree
//
// A Tree holds an ordered list of namespaces. The first namespace is the
// source (obfuscated) namespace; every class, field and method is keyed by
// its source name. The remaining namespaces are destination columns:
//
//	namespace 0  official      a          (source)
//	namespace 1  intermediary  class_123
//	namespace 2  named         net/minecraft/Block
//
// An empty destination name means "unmapped" and resolves to the source name.
// Member descriptors are stored in source form and translated on demand; a
// per-namespace descriptor override exists for fields whose type was migrated.
//
// # Formats
//
//   - tiny v2: the native multi-namespace format (Read, Write)
//   - tsrg: two-namespace class/member lists (ReadTSRG)
//   - csv name tables: searge-name to readable-name tables (ReadNameTable)
package mapping
