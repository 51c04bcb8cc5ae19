// Package patch reads, writes and applies binary class patches.
//
// Two formats are supported. The legacy format is an archive (optionally LZMA-compressed) of
// per-class records under "binpatch/<side>/"; each record carries the names of the class, a
// flag telling whether the class exists before patching, the Adler-32 checksum of the clean
// class bytes and a GDIFF delta. Records are applied in process by ApplyJar, which refuses to
// patch a class whose bytes do not match the recorded checksum.
//
// The modern format is applied by an external console tool; ConsolePatcher invokes it and
// RepackForConsole converts a legacy archive into the layout that tool expects.
package patch
