package classfile

import "fmt"

// Attribute names.
const (
	AttrCode                                 = "Code"
	AttrConstantValue                        = "ConstantValue"
	AttrExceptions                           = "Exceptions"
	AttrSignature                            = "Signature"
	AttrSourceFile                           = "SourceFile"
	AttrLineNumberTable                      = "LineNumberTable"
	AttrLocalVariableTable                   = "LocalVariableTable"
	AttrLocalVariableTypeTable               = "LocalVariableTypeTable"
	AttrStackMapTable                        = "StackMapTable"
	AttrMethodParameters                     = "MethodParameters"
	AttrInnerClasses                         = "InnerClasses"
	AttrEnclosingMethod                      = "EnclosingMethod"
	AttrBootstrapMethods                     = "BootstrapMethods"
	AttrDeprecated                           = "Deprecated"
	AttrSynthetic                            = "Synthetic"
	AttrAnnotationDefault                    = "AnnotationDefault"
	AttrRuntimeVisibleAnnotations            = "RuntimeVisibleAnnotations"
	AttrRuntimeInvisibleAnnotations          = "RuntimeInvisibleAnnotations"
	AttrRuntimeVisibleParameterAnnotations   = "RuntimeVisibleParameterAnnotations"
	AttrRuntimeInvisibleParameterAnnotations = "RuntimeInvisibleParameterAnnotations"
	AttrRuntimeVisibleTypeAnnotations        = "RuntimeVisibleTypeAnnotations"
	AttrRuntimeInvisibleTypeAnnotations      = "RuntimeInvisibleTypeAnnotations"
)

// Code is the decoded Code attribute of a method.
type Code struct {
	MaxStack   uint16
	MaxLocals  uint16
	Code       []byte
	Exceptions []ExceptionHandler
	Attributes Attributes
}

// ExceptionHandler is one exception table entry. CatchType 0 catches everything.
type ExceptionHandler struct {
	StartPC   uint16
	EndPC     uint16
	HandlerPC uint16
	CatchType uint16
}

// DecodeCode decodes a Code attribute.
func DecodeCode(info []byte) (*Code, error) {
	r := newReader(info)
	c := &Code{MaxStack: r.u2(), MaxLocals: r.u2()}
	c.Code = r.take(int(r.u4()))

	c.Exceptions = make([]ExceptionHandler, r.u2())
	for i := range c.Exceptions {
		c.Exceptions[i] = ExceptionHandler{StartPC: r.u2(), EndPC: r.u2(), HandlerPC: r.u2(), CatchType: r.u2()}
	}

	c.Attributes = parseAttributes(r)

	if err := r.done(); err != nil {
		return nil, fmt.Errorf("code attribute: %w", err)
	}

	return c, nil
}

// Encode serializes the Code attribute content.
func (c *Code) Encode() []byte {
	b := make([]byte, 0, 12+len(c.Code)+8*len(c.Exceptions))
	b = appendU2(b, c.MaxStack)
	b = appendU2(b, c.MaxLocals)
	b = appendU4(b, uint32(len(c.Code)))
	b = append(b, c.Code...)

	b = appendU2(b, uint16(len(c.Exceptions)))
	for _, e := range c.Exceptions {
		b = appendU2(b, e.StartPC)
		b = appendU2(b, e.EndPC)
		b = appendU2(b, e.HandlerPC)
		b = appendU2(b, e.CatchType)
	}

	return c.Attributes.appendTo(b)
}

// LocalVar is a LocalVariableTable entry. In a LocalVariableTypeTable DescIndex holds the
// generic signature.
type LocalVar struct {
	StartPC   uint16
	Length    uint16
	NameIndex uint16
	DescIndex uint16
	Index     uint16
}

// DecodeLocalVars decodes a LocalVariableTable or LocalVariableTypeTable.
func DecodeLocalVars(info []byte) ([]LocalVar, error) {
	r := newReader(info)

	out := make([]LocalVar, r.u2())
	for i := range out {
		out[i] = LocalVar{StartPC: r.u2(), Length: r.u2(), NameIndex: r.u2(), DescIndex: r.u2(), Index: r.u2()}
	}

	if err := r.done(); err != nil {
		return nil, fmt.Errorf("local variable table: %w", err)
	}

	return out, nil
}

// EncodeLocalVars serializes a LocalVariableTable or LocalVariableTypeTable.
func EncodeLocalVars(vars []LocalVar) []byte {
	b := appendU2(make([]byte, 0, 2+10*len(vars)), uint16(len(vars)))
	for _, v := range vars {
		b = appendU2(b, v.StartPC)
		b = appendU2(b, v.Length)
		b = appendU2(b, v.NameIndex)
		b = appendU2(b, v.DescIndex)
		b = appendU2(b, v.Index)
	}

	return b
}

// MethodParameter is a MethodParameters entry. NameIndex 0 means the parameter is unnamed.
type MethodParameter struct {
	NameIndex uint16
	Access    uint16
}

// DecodeMethodParameters decodes a MethodParameters attribute.
func DecodeMethodParameters(info []byte) ([]MethodParameter, error) {
	r := newReader(info)

	out := make([]MethodParameter, r.u1())
	for i := range out {
		out[i] = MethodParameter{NameIndex: r.u2(), Access: r.u2()}
	}

	if err := r.done(); err != nil {
		return nil, fmt.Errorf("method parameters: %w", err)
	}

	return out, nil
}

// EncodeMethodParameters serializes a MethodParameters attribute.
func EncodeMethodParameters(params []MethodParameter) []byte {
	b := append(make([]byte, 0, 1+4*len(params)), byte(len(params)))
	for _, p := range params {
		b = appendU2(b, p.NameIndex)
		b = appendU2(b, p.Access)
	}

	return b
}

// InnerClass is an InnerClasses entry. OuterClass and InnerName are 0 for local and
// anonymous classes.
type InnerClass struct {
	InnerClass uint16
	OuterClass uint16
	InnerName  uint16
	Access     uint16
}

// DecodeInnerClasses decodes an InnerClasses attribute.
func DecodeInnerClasses(info []byte) ([]InnerClass, error) {
	r := newReader(info)

	out := make([]InnerClass, r.u2())
	for i := range out {
		out[i] = InnerClass{InnerClass: r.u2(), OuterClass: r.u2(), InnerName: r.u2(), Access: r.u2()}
	}

	if err := r.done(); err != nil {
		return nil, fmt.Errorf("inner classes: %w", err)
	}

	return out, nil
}

// EncodeInnerClasses serializes an InnerClasses attribute.
func EncodeInnerClasses(entries []InnerClass) []byte {
	b := appendU2(make([]byte, 0, 2+8*len(entries)), uint16(len(entries)))
	for _, e := range entries {
		b = appendU2(b, e.InnerClass)
		b = appendU2(b, e.OuterClass)
		b = appendU2(b, e.InnerName)
		b = appendU2(b, e.Access)
	}

	return b
}

// EnclosingMethod is the EnclosingMethod attribute of a local or anonymous class. Method is 0
// when the class is not enclosed by a method.
type EnclosingMethod struct {
	Class  uint16
	Method uint16
}

// DecodeEnclosingMethod decodes an EnclosingMethod attribute.
func DecodeEnclosingMethod(info []byte) (EnclosingMethod, error) {
	r := newReader(info)
	em := EnclosingMethod{Class: r.u2(), Method: r.u2()}

	if err := r.done(); err != nil {
		return EnclosingMethod{}, fmt.Errorf("enclosing method: %w", err)
	}

	return em, nil
}

// Encode serializes the attribute content.
func (em EnclosingMethod) Encode() []byte {
	return appendU2(appendU2(make([]byte, 0, 4), em.Class), em.Method)
}

// DecodeU2 decodes a single-index attribute such as Signature, ConstantValue or SourceFile.
func DecodeU2(info []byte) (uint16, error) {
	r := newReader(info)
	v := r.u2()

	if err := r.done(); err != nil {
		return 0, err
	}

	return v, nil
}

// EncodeU2 serializes a single-index attribute.
func EncodeU2(v uint16) []byte {
	return appendU2(make([]byte, 0, 2), v)
}

// DecodeU2List decodes an index list attribute such as Exceptions.
func DecodeU2List(info []byte) ([]uint16, error) {
	r := newReader(info)

	out := make([]uint16, r.u2())
	for i := range out {
		out[i] = r.u2()
	}

	if err := r.done(); err != nil {
		return nil, err
	}

	return out, nil
}

// EncodeU2List serializes an index list attribute.
func EncodeU2List(v []uint16) []byte {
	b := appendU2(make([]byte, 0, 2+2*len(v)), uint16(len(v)))
	for _, x := range v {
		b = appendU2(b, x)
	}

	return b
}

// BootstrapMethod is a BootstrapMethods entry.
type BootstrapMethod struct {
	MethodRef uint16
	Args      []uint16
}

// DecodeBootstrapMethods decodes a BootstrapMethods attribute.
func DecodeBootstrapMethods(info []byte) ([]BootstrapMethod, error) {
	r := newReader(info)

	out := make([]BootstrapMethod, r.u2())
	for i := range out {
		out[i].MethodRef = r.u2()

		out[i].Args = make([]uint16, r.u2())
		for j := range out[i].Args {
			out[i].Args[j] = r.u2()
		}
	}

	if err := r.done(); err != nil {
		return nil, fmt.Errorf("bootstrap methods: %w", err)
	}

	return out, nil
}

// EncodeBootstrapMethods serializes a BootstrapMethods attribute.
func EncodeBootstrapMethods(bms []BootstrapMethod) []byte {
	b := appendU2(nil, uint16(len(bms)))
	for _, bm := range bms {
		b = appendU2(b, bm.MethodRef)
		b = appendU2(b, uint16(len(bm.Args)))

		for _, a := range bm.Args {
			b = appendU2(b, a)
		}
	}

	return b
}
