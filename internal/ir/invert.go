package ir

// Invert returns the node whose execution exactly undoes n. It is purely
// structural: statements swap to their registered inverse op, composite
// bodies reverse, For walks the same index set backwards, and If/While swap
// their precondition/postcondition roles. Invert(Invert(n)) is structurally
// identical to n.
func Invert(n Node) Node {
	switch t := n.(type) {
	case Stmt:
		t.Op = Ops[t.Op].Inverse
		return t

	case Block:
		return InvertBlock(t)

	case For:
		t.Start, t.Stop = t.Stop, t.Start
		t.Step = -t.Step
		t.Body = InvertBlock(t.Body)
		return t

	case If:
		t.Pre, t.Post = t.Post, t.Pre
		t.Then = InvertBlock(t.Then)
		t.Else = InvertBlock(t.Else)
		return t

	case While:
		t.Pre, t.Post = t.Post, t.Pre
		t.Body = InvertBlock(t.Body)
		return t

	case Routine:
		// Forward expansion is compute; use; compute⁻¹, so only the use
		// leg flips: compute; use⁻¹; compute⁻¹ undoes it.
		t.Use = InvertBlock(t.Use)
		return t

	case Call:
		t.Callee = InvertProgram(t.Callee)
		return t
	}
	panic("ir: unknown node type")
}

// InvertBlock inverts each child in reverse order:
// invert([s1 ... sn]) = [invert(sn) ... invert(s1)].
func InvertBlock(b Block) Block {
	out := make([]Node, len(b.Body))
	for i, n := range b.Body {
		out[len(b.Body)-1-i] = Invert(n)
	}
	return Block{Body: out}
}

// InvertProgram returns the inverse program, sharing param declarations.
// Names toggle a "~" prefix so ~~f prints as f again.
func InvertProgram(p *Program) *Program {
	name := "~" + p.Name
	if len(p.Name) > 0 && p.Name[0] == '~' {
		name = p.Name[1:]
	}
	return &Program{
		Name:   name,
		Params: p.Params,
		Body:   InvertBlock(p.Body),
	}
}
