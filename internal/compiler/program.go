package compiler

import (
	"fmt"
	"sort"

	"cuelang.org/go/cue"
	"golang.org/x/text/unicode/norm"

	"github.com/janus-vm/janus/internal/domain"
	"github.com/janus-vm/janus/internal/ir"
)

// DecodeProgram extracts an ir.Program from a CUE value holding a `program`
// field, resolving `call` nodes against the optional top-level `library`
// map. Library entries are plain sub-programs and may not themselves contain
// calls. Binding names are NFC-normalized so visually identical names cannot
// alias distinct bindings.
//
// Decoding is purely structural; run Validate on the result before
// executing it.
func DecodeProgram(v cue.Value) (*ir.Program, []BuildError) {
	d := &decoder{library: make(map[string]*ir.Program)}

	libVal := v.LookupPath(cue.ParsePath("library"))
	if libVal.Exists() {
		d.decodeLibrary(libVal)
	}

	progVal := v.LookupPath(cue.ParsePath("program"))
	if !progVal.Exists() {
		d.errf("program", "no program field found")
		return nil, d.errs
	}
	p := d.decodeOne("program", progVal, true)
	if len(d.errs) > 0 {
		return nil, d.errs
	}
	return p, nil
}

type decoder struct {
	errs    []BuildError
	library map[string]*ir.Program
}

func (d *decoder) errf(path, format string, args ...any) {
	d.errs = append(d.errs, BuildError{
		Code:    ErrCodeMalformedNode,
		Path:    path,
		Message: fmt.Sprintf(format, args...),
	})
}

func (d *decoder) decodeLibrary(v cue.Value) {
	iter, err := v.Fields()
	if err != nil {
		d.errf("library", "iterating library: %v", err)
		return
	}
	type entry struct {
		name string
		val  cue.Value
	}
	var entries []entry
	for iter.Next() {
		entries = append(entries, entry{iter.Label(), iter.Value()})
	}
	// Deterministic decode order regardless of CUE file layout.
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })
	for _, e := range entries {
		p := d.decodeOne("library."+e.name, e.val, false)
		if p != nil {
			p.Name = e.name
			d.library[e.name] = p
		}
	}
}

func (d *decoder) decodeOne(path string, v cue.Value, allowCalls bool) *ir.Program {
	p := &ir.Program{}

	nameVal := v.LookupPath(cue.ParsePath("name"))
	if nameVal.Exists() {
		s, err := nameVal.String()
		if err != nil {
			d.errf(path+".name", "name must be a string: %v", err)
		}
		p.Name = s
	}

	paramsVal := v.LookupPath(cue.ParsePath("params"))
	if paramsVal.Exists() {
		iter, err := paramsVal.List()
		if err != nil {
			d.errf(path+".params", "params must be a list: %v", err)
		} else {
			for i := 0; iter.Next(); i++ {
				p.Params = append(p.Params, d.decodeParam(fmt.Sprintf("%s.params[%d]", path, i), iter.Value()))
			}
		}
	}

	bodyVal := v.LookupPath(cue.ParsePath("body"))
	if !bodyVal.Exists() {
		d.errf(path, "program has no body")
		return p
	}
	p.Body = d.decodeBlock(path+".body", bodyVal, allowCalls)
	return p
}

func (d *decoder) decodeParam(path string, v cue.Value) ir.Param {
	var pa ir.Param
	if s, err := v.LookupPath(cue.ParsePath("name")).String(); err == nil {
		pa.Name = norm.NFC.String(s)
	} else {
		d.errf(path, "param name must be a string: %v", err)
	}
	if s, err := v.LookupPath(cue.ParsePath("kind")).String(); err == nil {
		pa.Kind = domain.Kind(s)
	} else {
		d.errf(path, "param kind must be a string: %v", err)
	}
	return pa
}

func (d *decoder) decodeBlock(path string, v cue.Value, allowCalls bool) ir.Block {
	var b ir.Block
	iter, err := v.List()
	if err != nil {
		d.errf(path, "expected a list of nodes: %v", err)
		return b
	}
	for i := 0; iter.Next(); i++ {
		n := d.decodeNode(fmt.Sprintf("%s[%d]", path, i), iter.Value(), allowCalls)
		if n != nil {
			b.Body = append(b.Body, n)
		}
	}
	return b
}

func (d *decoder) decodeNode(path string, v cue.Value, allowCalls bool) ir.Node {
	for _, key := range []string{"for", "if", "while", "routine", "call"} {
		sub := v.LookupPath(cue.ParsePath(key))
		if !sub.Exists() {
			continue
		}
		switch key {
		case "for":
			return d.decodeFor(path, sub, allowCalls)
		case "if":
			return d.decodeIf(path, sub, allowCalls)
		case "while":
			return d.decodeWhile(path, sub, allowCalls)
		case "routine":
			return d.decodeRoutine(path, sub, allowCalls)
		case "call":
			if !allowCalls {
				d.errf(path, "library sub-programs may not contain calls")
				return nil
			}
			return d.decodeCall(path, sub)
		}
	}
	return d.decodeStmt(path, v)
}

func (d *decoder) decodeStmt(path string, v cue.Value) ir.Node {
	opVal := v.LookupPath(cue.ParsePath("op"))
	if !opVal.Exists() {
		d.errf(path, "node is neither a statement nor a control-flow construct")
		return nil
	}
	s, err := opVal.String()
	if err != nil {
		d.errf(path+".op", "op must be a string: %v", err)
		return nil
	}
	stmt := ir.Stmt{Op: ir.Op(s)}

	if tv := v.LookupPath(cue.ParsePath("target")); tv.Exists() {
		t, err := tv.String()
		if err != nil {
			d.errf(path+".target", "target must be a string: %v", err)
		}
		stmt.Target = norm.NFC.String(t)
	}

	if fv := v.LookupPath(cue.ParsePath("fn")); fv.Exists() {
		f, err := fv.String()
		if err != nil {
			d.errf(path+".fn", "fn must be a string: %v", err)
		}
		stmt.Fn = ir.Fn(f)
	} else if spec, ok := ir.Ops[stmt.Op]; ok && spec.TakesFn {
		stmt.Fn = ir.FnIdentity
	}

	if av := v.LookupPath(cue.ParsePath("a")); av.Exists() {
		stmt.A = d.decodeRef(path+".a", av)
	}
	if bv := v.LookupPath(cue.ParsePath("b")); bv.Exists() {
		stmt.B = d.decodeRef(path+".b", bv)
	}
	return stmt
}

// decodeRef decodes an operand: a string is a binding name, a bare integer
// is an int literal, a bare float is a fixed-point literal, and
// {lit: n, kind: k} forces the kind explicitly.
func (d *decoder) decodeRef(path string, v cue.Value) ir.Ref {
	switch v.Kind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			d.errf(path, "reading operand: %v", err)
			return ir.Ref{}
		}
		return ir.V(norm.NFC.String(s))

	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			d.errf(path, "reading int literal: %v", err)
			return ir.Ref{}
		}
		return ir.C(domain.Int(n))

	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			d.errf(path, "reading literal: %v", err)
			return ir.Ref{}
		}
		fx, ferr := domain.FixedFromFloat(f)
		if ferr != nil {
			d.errf(path, "fixed-point literal: %v", ferr)
			return ir.Ref{}
		}
		return ir.C(fx)

	case cue.StructKind:
		kindVal := v.LookupPath(cue.ParsePath("kind"))
		litVal := v.LookupPath(cue.ParsePath("lit"))
		if !kindVal.Exists() || !litVal.Exists() {
			d.errf(path, "literal struct requires lit and kind fields")
			return ir.Ref{}
		}
		ks, err := kindVal.String()
		if err != nil {
			d.errf(path, "literal kind must be a string: %v", err)
			return ir.Ref{}
		}
		f, err := litVal.Float64()
		if err != nil {
			d.errf(path, "reading literal: %v", err)
			return ir.Ref{}
		}
		val, verr := domain.FromFloat(domain.Kind(ks), f)
		if verr != nil {
			d.errf(path, "literal: %v", verr)
			return ir.Ref{}
		}
		return ir.C(val)
	}
	d.errf(path, "operand must be a name, a number, or a {lit, kind} struct")
	return ir.Ref{}
}

func (d *decoder) decodeFor(path string, v cue.Value, allowCalls bool) ir.Node {
	f := ir.For{}
	if s, err := v.LookupPath(cue.ParsePath("var")).String(); err == nil {
		f.Var = norm.NFC.String(s)
	} else {
		d.errf(path+".var", "for loop index must be a string: %v", err)
	}
	f.Start = d.decodeRef(path+".start", v.LookupPath(cue.ParsePath("start")))
	f.Stop = d.decodeRef(path+".stop", v.LookupPath(cue.ParsePath("stop")))
	if n, err := v.LookupPath(cue.ParsePath("step")).Int64(); err == nil {
		f.Step = n
	} else {
		d.errf(path+".step", "step must be an integer: %v", err)
	}
	f.Body = d.decodeBlock(path+".body", v.LookupPath(cue.ParsePath("body")), allowCalls)
	return f
}

func (d *decoder) decodeIf(path string, v cue.Value, allowCalls bool) ir.Node {
	n := ir.If{}
	n.Pre = d.decodePred(path+".pre", v.LookupPath(cue.ParsePath("pre")))
	n.Post = d.decodePred(path+".post", v.LookupPath(cue.ParsePath("post")))

	// Both branches must be declared explicitly; a single-guard conditional
	// is not re-derivable in reverse.
	thenVal := v.LookupPath(cue.ParsePath("then"))
	elseVal := v.LookupPath(cue.ParsePath("else"))
	if !thenVal.Exists() || !elseVal.Exists() {
		d.errf(path, "reversible if requires explicit then and else branches (use an empty list)")
		return n
	}
	n.Then = d.decodeBlock(path+".then", thenVal, allowCalls)
	n.Else = d.decodeBlock(path+".else", elseVal, allowCalls)
	return n
}

func (d *decoder) decodeWhile(path string, v cue.Value, allowCalls bool) ir.Node {
	n := ir.While{}
	n.Pre = d.decodePred(path+".pre", v.LookupPath(cue.ParsePath("pre")))
	n.Post = d.decodePred(path+".post", v.LookupPath(cue.ParsePath("post")))
	n.Body = d.decodeBlock(path+".body", v.LookupPath(cue.ParsePath("body")), allowCalls)
	return n
}

func (d *decoder) decodeRoutine(path string, v cue.Value, allowCalls bool) ir.Node {
	r := ir.Routine{}
	ancVal := v.LookupPath(cue.ParsePath("ancillas"))
	if ancVal.Exists() {
		iter, err := ancVal.List()
		if err != nil {
			d.errf(path+".ancillas", "ancillas must be a list: %v", err)
		} else {
			for i := 0; iter.Next(); i++ {
				r.Ancillas = append(r.Ancillas,
					d.decodeParam(fmt.Sprintf("%s.ancillas[%d]", path, i), iter.Value()))
			}
		}
	}
	r.Compute = d.decodeBlock(path+".compute", v.LookupPath(cue.ParsePath("compute")), allowCalls)
	r.Use = d.decodeBlock(path+".use", v.LookupPath(cue.ParsePath("use")), allowCalls)
	return r
}

func (d *decoder) decodeCall(path string, v cue.Value) ir.Node {
	c := ir.Call{}
	name, err := v.LookupPath(cue.ParsePath("program")).String()
	if err != nil {
		d.errf(path+".program", "call target must be a string: %v", err)
		return nil
	}
	callee, ok := d.library[name]
	if !ok {
		d.errf(path, "call references unknown library program %q", name)
		return nil
	}
	c.Callee = callee

	argsVal := v.LookupPath(cue.ParsePath("args"))
	iter, err := argsVal.List()
	if err != nil {
		d.errf(path+".args", "call args must be a list: %v", err)
		return nil
	}
	for i := 0; iter.Next(); i++ {
		s, err := iter.Value().String()
		if err != nil {
			d.errf(fmt.Sprintf("%s.args[%d]", path, i), "arg must be a binding name: %v", err)
			continue
		}
		c.Args = append(c.Args, norm.NFC.String(s))
	}
	return c
}

func (d *decoder) decodePred(path string, v cue.Value) ir.Pred {
	var p ir.Pred
	if !v.Exists() {
		d.errf(path, "missing predicate")
		return p
	}
	if s, err := v.LookupPath(cue.ParsePath("cmp")).String(); err == nil {
		p.Cmp = ir.Cmp(s)
	} else {
		d.errf(path+".cmp", "cmp must be a string: %v", err)
	}
	p.A = d.decodeRef(path+".a", v.LookupPath(cue.ParsePath("a")))
	p.B = d.decodeRef(path+".b", v.LookupPath(cue.ParsePath("b")))
	return p
}
