package transform

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"jarsmith/internal/classfile"
	"jarsmith/internal/logging"
	"jarsmith/internal/mapping"
)

const lambdaMetafactory = "java/lang/invoke/LambdaMetafactory"

// Remapper renames class references, member declarations, member references, descriptors,
// signatures, local variables, annotations and inner class entries of a class.
//
// New names are interned as new pool entries and the referring entries are re-pointed at them;
// UTF8 and NameAndType entries are never edited in place since they may be shared.
type Remapper struct {
	Mapper    Mapper
	Hierarchy *Hierarchy
}

// NewRemapper returns a remapper. The hierarchy may be nil.
func NewRemapper(m Mapper, h *Hierarchy) *Remapper {
	return &Remapper{Mapper: m, Hierarchy: h}
}

// Transform returns the remapper as a Transform.
func (r *Remapper) Transform() Transform {
	return r.Remap
}

// MapType maps an internal name or array descriptor.
func (r *Remapper) MapType(name string) string {
	return mapping.MapType(name, r.Mapper.MapClass)
}

func (r *Remapper) mapDesc(desc string) string {
	return mapping.MapDesc(desc, r.Mapper.MapClass)
}

func (r *Remapper) mapSignature(sig string) string {
	return mapping.MapSignature(sig, r.Mapper.MapClass)
}

// MapMember maps a field or method reference, walking the super types of owner until a class
// with a mapping for the member is found.
func (r *Remapper) MapMember(method bool, owner, name, desc string) string {
	if method && (name == "<init>" || name == "<clinit>") {
		return name
	}

	lookup := r.Mapper.MapField
	if method {
		lookup = r.Mapper.MapMethod
	}

	if to := lookup(owner, name, desc); to != name {
		return to
	}

	seen := map[string]struct{}{owner: {}}
	queue := append([]string(nil), r.Hierarchy.Parents(owner)...)

	for len(queue) > 0 {
		cls := queue[0]
		queue = queue[1:]

		if _, ok := seen[cls]; ok {
			continue
		}

		seen[cls] = struct{}{}

		if to := lookup(cls, name, desc); to != name {
			return to
		}

		queue = append(queue, r.Hierarchy.Parents(cls)...)
	}

	return name
}

// Remap implements Transform.
func (r *Remapper) Remap(c *classfile.Class, ctx *Context) (bool, error) {
	p := c.Pool
	this := c.Name()
	end := uint16(p.Len())

	bsms, err := bootstrapMethods(c)
	if err != nil {
		return false, err
	}

	changed, err := r.remapDeclarations(c, ctx.Hook)
	if err != nil {
		return false, err
	}

	ok, err := r.remapClassAttributes(c)
	if err != nil {
		return false, fmt.Errorf("class %s: %w", this, err)
	}

	changed = changed || ok

	// Member references and call sites read MethodType entries, so those are rewritten after.
	for i := uint16(1); i < end; i++ {
		k := p.Get(i)

		switch {
		case k.Tag.IsMemberRef():
			owner, name, desc := p.MemberRef(i)
			to := r.MapMember(k.Tag != classfile.TagFieldref, owner, name, desc)

			if nd := r.mapDesc(desc); to != name || nd != desc {
				p.Set(i, classfile.Constant{Tag: k.Tag, A: k.A, B: p.AddNameAndType(to, nd)})
				changed = true
			}
		case k.Tag == classfile.TagInvokeDynamic, k.Tag == classfile.TagDynamic:
			name, desc := p.NameAndType(k.B)
			to := name

			if k.Tag == classfile.TagInvokeDynamic {
				if owner, samDesc, ok := lambdaTarget(p, bsms, k.A, desc); ok {
					to = r.MapMember(true, owner, name, samDesc)
				}
			}

			if nd := r.mapDesc(desc); to != name || nd != desc {
				p.Set(i, classfile.Constant{Tag: k.Tag, A: k.A, B: p.AddNameAndType(to, nd)})
				changed = true
			}
		}
	}

	for i := uint16(1); i < end; i++ {
		if k := p.Get(i); k.Tag == classfile.TagMethodType {
			desc := p.UTF8(k.A)
			if nd := r.mapDesc(desc); nd != desc {
				p.Set(i, classfile.Constant{Tag: k.Tag, A: p.AddUTF8(nd)})
				changed = true
			}
		}
	}

	// Class entries go last: everything above reads owners in the old namespace.
	for i := uint16(1); i < end; i++ {
		if k := p.Get(i); k.Tag == classfile.TagClass {
			name := p.UTF8(k.A)
			if to := r.MapType(name); to != name {
				p.Set(i, classfile.Constant{Tag: k.Tag, A: p.AddUTF8(to)})
				changed = true
			}
		}
	}

	if to := c.Name(); to != this {
		logging.OrNop(ctx.Logger).Debug("remapped class", zap.String("from", this), zap.String("to", to))

		if ctx.Hook != nil {
			ctx.Hook.OnClass(this, to)
		}
	}

	return changed, nil
}

func (r *Remapper) remapDeclarations(c *classfile.Class, hook DebugHook) (bool, error) {
	this := c.Name()

	return eachMember(c, func(m *classfile.Member, method bool) (bool, error) {
		name, desc := c.MemberName(m), c.MemberDesc(m)

		changed, err := r.remapMemberAttributes(c, m, method, name, desc)
		if err != nil {
			return false, err
		}

		var to string

		switch {
		case !method:
			to = r.Mapper.MapField(this, name, desc)
		case m.Access&(classfile.AccPrivate|classfile.AccStatic) != 0:
			to = r.Mapper.MapMethod(this, name, desc)
		default:
			to = r.MapMember(true, this, name, desc)
		}

		if to != name {
			m.NameIndex = c.Pool.AddUTF8(to)
			changed = true

			if hook != nil {
				kind := mapping.KindField
				if method {
					kind = mapping.KindMethod
				}

				hook.OnMember(kind, this, name, desc, to)
			}
		}

		if nd := r.mapDesc(desc); nd != desc {
			m.DescIndex = c.Pool.AddUTF8(nd)
			changed = true
		}

		return changed, nil
	})
}

func (r *Remapper) remapClassAttributes(c *classfile.Class) (bool, error) {
	p := c.Pool

	changed, err := r.remapCommonAttributes(p, &c.Attributes)
	if err != nil {
		return false, err
	}

	if i := c.Attributes.Index(p, classfile.AttrInnerClasses); i >= 0 {
		entries, err := classfile.DecodeInnerClasses(c.Attributes[i].Info)
		if err != nil {
			return false, err
		}

		edited := false

		for j := range entries {
			e := &entries[j]
			if e.InnerName == 0 {
				continue
			}

			old := p.ClassName(e.InnerClass)

			to := r.MapType(old)
			if to == old {
				continue
			}

			simple := to[strings.LastIndexAny(to, "$/")+1:]
			if e.OuterClass != 0 {
				if outer := r.MapType(p.ClassName(e.OuterClass)); strings.HasPrefix(to, outer+mapping.InnerClassSeparator) {
					simple = to[len(outer)+1:]
				}
			}

			if simple != p.UTF8(e.InnerName) {
				e.InnerName = p.AddUTF8(simple)
				edited = true
			}
		}

		if edited {
			c.Attributes[i].Info = classfile.EncodeInnerClasses(entries)
			changed = true
		}
	}

	if i := c.Attributes.Index(p, classfile.AttrEnclosingMethod); i >= 0 {
		em, err := classfile.DecodeEnclosingMethod(c.Attributes[i].Info)
		if err != nil {
			return false, err
		}

		if em.Method != 0 {
			name, desc := p.NameAndType(em.Method)
			to := r.MapMember(true, p.ClassName(em.Class), name, desc)

			if nd := r.mapDesc(desc); to != name || nd != desc {
				em.Method = p.AddNameAndType(to, nd)
				c.Attributes[i].Info = em.Encode()
				changed = true
			}
		}
	}

	return changed, nil
}

func (r *Remapper) remapMemberAttributes(c *classfile.Class, m *classfile.Member, method bool, name, desc string) (bool, error) {
	p := c.Pool

	changed, err := r.remapCommonAttributes(p, &m.Attributes)
	if err != nil || !method {
		return changed, err
	}

	for _, attr := range parameterAnnotationAttrs {
		i := m.Attributes.Index(p, attr)
		if i < 0 {
			continue
		}

		params, err := classfile.DecodeParameterAnnotations(m.Attributes[i].Info)
		if err != nil {
			return false, err
		}

		edited := false
		for _, anns := range params {
			edited = r.remapAnnotations(p, anns) || edited
		}

		if edited {
			m.Attributes[i].Info = classfile.EncodeParameterAnnotations(params)
			changed = true
		}
	}

	if i := m.Attributes.Index(p, classfile.AttrAnnotationDefault); i >= 0 {
		v, err := classfile.DecodeElementValue(m.Attributes[i].Info)
		if err != nil {
			return false, err
		}

		if r.remapElementValue(p, &v) {
			m.Attributes[i].Info = classfile.EncodeElementValue(v)
			changed = true
		}
	}

	locals, err := argLocals(desc, m.Access&classfile.AccStatic != 0)
	if err != nil {
		return false, err
	}

	owner := c.Name()

	if i := m.Attributes.Index(p, classfile.AttrMethodParameters); i >= 0 {
		params, err := classfile.DecodeMethodParameters(m.Attributes[i].Info)
		if err != nil {
			return false, err
		}

		edited := false

		for j := range params {
			if j >= len(locals) {
				break
			}

			if arg := r.Mapper.MapArg(owner, name, desc, locals[j]); arg != "" && arg != p.UTF8(params[j].NameIndex) {
				params[j].NameIndex = p.AddUTF8(arg)
				edited = true
			}
		}

		if edited {
			m.Attributes[i].Info = classfile.EncodeMethodParameters(params)
			changed = true
		}
	}

	isArg := make(map[int]bool, len(locals))
	for _, lv := range locals {
		isArg[lv] = true
	}

	codeChanged, err := editCode(c, m, func(code *classfile.Code) (bool, error) {
		edited := false

		for _, table := range []string{classfile.AttrLocalVariableTable, classfile.AttrLocalVariableTypeTable} {
			j := code.Attributes.Index(p, table)
			if j < 0 {
				continue
			}

			vars, err := classfile.DecodeLocalVars(code.Attributes[j].Info)
			if err != nil {
				return false, err
			}

			tableEdited := false

			for k := range vars {
				v := &vars[k]

				d := p.UTF8(v.DescIndex)

				nd := r.mapDesc(d)
				if table == classfile.AttrLocalVariableTypeTable {
					nd = r.mapSignature(d)
				}

				if nd != d {
					v.DescIndex = p.AddUTF8(nd)
					tableEdited = true
				}

				if v.StartPC != 0 || !isArg[int(v.Index)] {
					continue
				}

				if arg := r.Mapper.MapArg(owner, name, desc, int(v.Index)); arg != "" && arg != p.UTF8(v.NameIndex) {
					v.NameIndex = p.AddUTF8(arg)
					tableEdited = true
				}
			}

			if tableEdited {
				code.Attributes[j].Info = classfile.EncodeLocalVars(vars)
				edited = true
			}
		}

		return edited, nil
	})

	return changed || codeChanged, err
}

// remapCommonAttributes handles the attributes classes, fields and methods share.
func (r *Remapper) remapCommonAttributes(p *classfile.ConstantPool, attrs *classfile.Attributes) (bool, error) {
	changed := false

	if i := attrs.Index(p, classfile.AttrSignature); i >= 0 {
		idx, err := classfile.DecodeU2((*attrs)[i].Info)
		if err != nil {
			return false, err
		}

		sig := p.UTF8(idx)
		if ns := r.mapSignature(sig); ns != sig {
			(*attrs)[i].Info = classfile.EncodeU2(p.AddUTF8(ns))
			changed = true
		}
	}

	for _, attr := range []string{classfile.AttrRuntimeVisibleAnnotations, classfile.AttrRuntimeInvisibleAnnotations} {
		i := attrs.Index(p, attr)
		if i < 0 {
			continue
		}

		anns, err := classfile.DecodeAnnotations((*attrs)[i].Info)
		if err != nil {
			return false, err
		}

		if r.remapAnnotations(p, anns) {
			(*attrs)[i].Info = classfile.EncodeAnnotations(anns)
			changed = true
		}
	}

	return changed, nil
}

func (r *Remapper) remapAnnotations(p *classfile.ConstantPool, anns []classfile.Annotation) bool {
	changed := false
	for i := range anns {
		changed = r.remapAnnotation(p, &anns[i]) || changed
	}

	return changed
}

func (r *Remapper) remapAnnotation(p *classfile.ConstantPool, a *classfile.Annotation) bool {
	changed := false

	if typ := p.UTF8(a.Type); r.mapDesc(typ) != typ {
		a.Type = p.AddUTF8(r.mapDesc(typ))
		changed = true
	}

	for i := range a.Elements {
		changed = r.remapElementValue(p, &a.Elements[i].Value) || changed
	}

	return changed
}

func (r *Remapper) remapElementValue(p *classfile.ConstantPool, v *classfile.ElementValue) bool {
	switch v.Tag {
	case 'e':
		typ := p.UTF8(v.EnumType)
		name := p.UTF8(v.EnumName)
		owner := strings.TrimSuffix(strings.TrimPrefix(typ, "L"), ";")

		changed := false

		if to := r.MapMember(false, owner, name, typ); to != name {
			v.EnumName = p.AddUTF8(to)
			changed = true
		}

		if nt := r.mapDesc(typ); nt != typ {
			v.EnumType = p.AddUTF8(nt)
			changed = true
		}

		return changed
	case 'c':
		d := p.UTF8(v.Const)
		if nd := r.mapDesc(d); nd != d {
			v.Const = p.AddUTF8(nd)
			return true
		}
	case '@':
		return r.remapAnnotation(p, v.Annotation)
	case '[':
		changed := false
		for i := range v.Values {
			changed = r.remapElementValue(p, &v.Values[i]) || changed
		}

		return changed
	}

	return false
}

func bootstrapMethods(c *classfile.Class) ([]classfile.BootstrapMethod, error) {
	info, ok := c.Attributes.Get(c.Pool, classfile.AttrBootstrapMethods)
	if !ok {
		return nil, nil
	}

	return classfile.DecodeBootstrapMethods(info)
}

// lambdaTarget returns the functional interface and the erased method descriptor implemented by
// a LambdaMetafactory call site.
func lambdaTarget(p *classfile.ConstantPool, bsms []classfile.BootstrapMethod, bsm uint16, indyDesc string) (string, string, bool) {
	if int(bsm) >= len(bsms) || len(bsms[bsm].Args) == 0 {
		return "", "", false
	}

	handle := p.Get(bsms[bsm].MethodRef)
	if handle.Tag != classfile.TagMethodHandle {
		return "", "", false
	}

	if owner, _, _ := p.MemberRef(handle.A); owner != lambdaMetafactory {
		return "", "", false
	}

	sam := p.Get(bsms[bsm].Args[0])
	if sam.Tag != classfile.TagMethodType {
		return "", "", false
	}

	_, ret, err := mapping.ParseMethodDesc(indyDesc)
	if err != nil || !strings.HasPrefix(ret, "L") {
		return "", "", false
	}

	return ret[1 : len(ret)-1], p.UTF8(sam.A), true
}
