// Package classfile parses and serializes compiled class files into a structured,
// mutable representation.
//
// The representation keeps constant pool indices as they appear on disk.
// Transforms rewrite a class by re-pointing indices at new or interned pool
// entries (AddUTF8, AddClass, AddNameAndType); existing entries are never
// edited in place unless the caller knows they are not shared.
//
// Attributes are kept as raw bytes. Typed decoders and encoders exist for the
// attributes the transforms need:
//
//   - Code, with nested LocalVariableTable and LocalVariableTypeTable
//   - MethodParameters
//   - Runtime{Visible,Invisible}Annotations and their parameter variants
//   - InnerClasses, Signature, EnclosingMethod, BootstrapMethods
//
// Unknown attributes survive a Parse/Bytes round trip unchanged.
package classfile
