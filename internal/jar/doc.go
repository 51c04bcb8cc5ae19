// Package jar reads and writes jar archives as in-memory entry sets.
//
// Archives are written deterministically: entries are sorted by name (the manifest first), every
// entry carries the same fixed modification time and the output is written to a temporary file
// that replaces the destination only once complete. Two runs over the same input therefore
// produce byte-identical jars, and a failed write never leaves a truncated artifact behind.
//
// TransformClasses is the per-class worker pool used by the pipeline stages. Each class file is
// one task; tasks only see their own input bytes and write their result into a private slot that
// is merged into the archive after all tasks finished.
package jar
