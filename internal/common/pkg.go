package common

import "strings"

// UnknownStr is returned by String methods for out-of-range enum values.
const UnknownStr = "unknown"

// InternalName converts a dotted binary class name into its internal form
// ("net.minecraft.Foo" -> "net/minecraft/Foo").
func InternalName(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}

// ClassFilePath returns the archive path of the class file for an internal name.
func ClassFilePath(internalName string) string {
	return internalName + ".class"
}

// ClassNameFromPath returns the internal class name for an archive path, and false when
// the path is not a class file.
func ClassNameFromPath(path string) (string, bool) {
	if !strings.HasSuffix(path, ".class") {
		return "", false
	}

	return strings.TrimSuffix(path, ".class"), true
}
