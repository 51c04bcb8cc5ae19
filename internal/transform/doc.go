// Package transform implements the per-class bytecode transforms of the pipeline.
//
// A Transform is a function over a parsed class and an explicit Context. The
// Context carries the name of the class being transformed, so transforms never
// rely on state shared between classes and can run on any worker goroutine.
//
// Transforms:
//   - StripParameterNames: drops synthetic parameter names from MethodParameters
//     and local variable tables
//   - FixConstructorParameterAnnotations: recomputes the annotated parameter
//     count of constructors from their descriptor
//   - MergeSideAnnotations: collapses side marker annotations from several
//     vocabularies into one canonical annotation
//   - Remapper: renames classes, members and descriptors through a mapping tree,
//     deriving names for unmapped inner classes with InnerClassNamer
//   - MergeVariants: superimposes the server variant of a class onto the client
//     variant
//
// A DebugHook observes every rename the Remapper applies; SpewHook dumps them.
package transform
