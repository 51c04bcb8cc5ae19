package transform

import (
	"fmt"
	"strconv"
	"strings"

	"jarsmith/internal/classfile"
)

const lambdaPrefix = "lambda$"

// MergeVariants superimposes the server variant of a class onto the client variant, in place.
//
// Server-only interfaces are added. Members present in only one variant are kept and marked
// with a side annotation. Server-only methods are relocated into the client's constant pool,
// together with every lambda body they reference; those lambdas are renamed past the client's
// highest lambda index so they cannot collide with the client's own synthetic methods.
func MergeVariants(client, server *classfile.Class, sides SideVocabulary) error {
	this := client.Name()
	if server.Name() != this {
		return fmt.Errorf("cannot merge %s into %s", server.Name(), this)
	}

	have := make(map[string]bool)
	for _, itf := range client.InterfaceNames() {
		have[itf] = true
	}

	for _, itf := range server.InterfaceNames() {
		if !have[itf] {
			client.Interfaces = append(client.Interfaces, client.Pool.AddClass(itf))
		}
	}

	copyOrder, renames, err := planServerMethods(client, server)
	if err != nil {
		return err
	}

	r, err := classfile.NewRelocator(server, client)
	if err != nil {
		return err
	}

	r.RenameMethod = func(owner, name, desc string) string {
		if owner != this {
			return ""
		}

		return renames[memberKey{owner, name, desc}]
	}

	if err := markClientOnly(client, client.Fields, server.Field, sides); err != nil {
		return err
	}

	if err := markClientOnly(client, client.Methods, server.Method, sides); err != nil {
		return err
	}

	for _, f := range server.Fields {
		if client.Field(server.MemberName(f), server.MemberDesc(f)) != nil {
			continue
		}

		nf, err := r.Member(f, "")
		if err != nil {
			return err
		}

		if err := markSide(client, nf, sides, SideServer); err != nil {
			return err
		}

		client.Fields = append(client.Fields, nf)
	}

	for _, m := range copyOrder {
		nm, err := r.Member(m, renames[memberKey{this, server.MemberName(m), server.MemberDesc(m)}])
		if err != nil {
			return err
		}

		if err := markSide(client, nm, sides, SideServer); err != nil {
			return err
		}

		client.Methods = append(client.Methods, nm)
	}

	r.Finish()

	return nil
}

// MarkClass marks a class that exists in only one variant.
func MarkClass(c *classfile.Class, sides SideVocabulary, side Side) error {
	return AddSideAnnotation(c, &c.Attributes, sides, side)
}

func markSide(c *classfile.Class, m *classfile.Member, sides SideVocabulary, side Side) error {
	if m.Access&classfile.AccSynthetic != 0 {
		return nil
	}

	return AddSideAnnotation(c, &m.Attributes, sides, side)
}

func markClientOnly(client *classfile.Class, members []*classfile.Member, inServer func(name, desc string) *classfile.Member, sides SideVocabulary) error {
	for _, m := range members {
		if inServer(client.MemberName(m), client.MemberDesc(m)) != nil {
			continue
		}

		if err := markSide(client, m, sides, SideClient); err != nil {
			return err
		}
	}

	return nil
}

// planServerMethods returns the server methods to copy, in order, and the new names of the
// lambda bodies among them.
func planServerMethods(client, server *classfile.Class) ([]*classfile.Member, map[memberKey]string, error) {
	this := server.Name()

	bsms, err := bootstrapMethods(server)
	if err != nil {
		return nil, nil, err
	}

	var worklist []*classfile.Member

	for _, m := range server.Methods {
		name, desc := server.MemberName(m), server.MemberDesc(m)
		if isLambda(name) || client.Method(name, desc) != nil {
			continue
		}

		worklist = append(worklist, m)
	}

	renames := make(map[memberKey]string)
	next := nextLambdaIndex(client)

	var order []*classfile.Member

	for len(worklist) > 0 {
		m := worklist[0]
		worklist = worklist[1:]
		order = append(order, m)

		refs, err := lambdaRefs(server, m, bsms)
		if err != nil {
			return nil, nil, fmt.Errorf("%s.%s: %w", this, server.MemberName(m), err)
		}

		for _, ref := range refs {
			key := memberKey{this, ref.name, ref.desc}
			if _, planned := renames[key]; planned {
				continue
			}

			lambda := server.Method(ref.name, ref.desc)
			if lambda == nil {
				continue
			}

			var renamed string

			for {
				renamed = renameLambda(ref.name, next)
				next++

				if client.Method(renamed, ref.desc) == nil {
					break
				}
			}

			renames[key] = renamed
			worklist = append(worklist, lambda)
		}
	}

	return order, renames, nil
}

type methodRef struct {
	name string
	desc string
}

// lambdaRefs returns the lambda bodies of the class that a method's call sites bind to.
func lambdaRefs(c *classfile.Class, m *classfile.Member, bsms []classfile.BootstrapMethod) ([]methodRef, error) {
	info, ok := m.Attributes.Get(c.Pool, classfile.AttrCode)
	if !ok {
		return nil, nil
	}

	code, err := classfile.DecodeCode(info)
	if err != nil {
		return nil, err
	}

	insns, err := classfile.Instructions(code.Code)
	if err != nil {
		return nil, err
	}

	this := c.Name()

	var out []methodRef

	for _, in := range insns {
		if in.Op != classfile.OpInvokeDynamic {
			continue
		}

		indy := c.Pool.Get(in.PoolIndex)
		if int(indy.A) >= len(bsms) {
			return nil, fmt.Errorf("%w: call site at %d names bootstrap method %d", classfile.ErrMalformed, in.PC, indy.A)
		}

		for _, arg := range bsms[indy.A].Args {
			h := c.Pool.Get(arg)
			if h.Tag != classfile.TagMethodHandle {
				continue
			}

			if owner, name, desc := c.Pool.MemberRef(h.A); owner == this && isLambda(name) {
				out = append(out, methodRef{name, desc})
			}
		}
	}

	return out, nil
}

func isLambda(name string) bool {
	return strings.HasPrefix(name, lambdaPrefix)
}

// nextLambdaIndex returns one past the highest numeric suffix of the class's lambda bodies.
func nextLambdaIndex(c *classfile.Class) int {
	next := 0

	for _, m := range c.Methods {
		name := c.MemberName(m)
		if !isLambda(name) {
			continue
		}

		if n, err := strconv.Atoi(name[strings.LastIndex(name, "$")+1:]); err == nil && n >= next {
			next = n + 1
		}
	}

	return next
}

// renameLambda replaces the numeric suffix of a lambda body name.
func renameLambda(name string, index int) string {
	i := strings.LastIndex(name, "$")
	if _, err := strconv.Atoi(name[i+1:]); err != nil {
		return name + "$" + strconv.Itoa(index)
	}

	return name[:i+1] + strconv.Itoa(index)
}
