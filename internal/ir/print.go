package ir

import (
	"fmt"
	"io"
	"strings"
)

// Fprint writes a deterministic disassembly of the program. The rendering is
// stable across runs and platforms so golden tests can diff it.
func Fprint(w io.Writer, p *Program) {
	params := make([]string, len(p.Params))
	for i, pa := range p.Params {
		params[i] = fmt.Sprintf("%s: %s", pa.Name, pa.Kind)
	}
	fmt.Fprintf(w, "program %s(%s)\n", p.Name, strings.Join(params, ", "))
	printBlock(w, p.Body, 1)
}

// Sprint renders the program to a string.
func Sprint(p *Program) string {
	var b strings.Builder
	Fprint(&b, p)
	return b.String()
}

func printBlock(w io.Writer, b Block, depth int) {
	for _, n := range b.Body {
		printNode(w, n, depth)
	}
}

func printNode(w io.Writer, n Node, depth int) {
	ind := strings.Repeat("  ", depth)
	switch t := n.(type) {
	case Stmt:
		fmt.Fprintf(w, "%s%s\n", ind, formatStmt(t))
	case Block:
		fmt.Fprintf(w, "%sblock\n", ind)
		printBlock(w, t, depth+1)
	case For:
		fmt.Fprintf(w, "%sfor %s = %s to %s step %d\n", ind, t.Var, t.Start, t.Stop, t.Step)
		printBlock(w, t.Body, depth+1)
	case If:
		fmt.Fprintf(w, "%sif pre(%s) post(%s)\n", ind, t.Pre, t.Post)
		fmt.Fprintf(w, "%sthen\n", ind)
		printBlock(w, t.Then, depth+1)
		fmt.Fprintf(w, "%selse\n", ind)
		printBlock(w, t.Else, depth+1)
	case While:
		fmt.Fprintf(w, "%swhile pre(%s) post(%s)\n", ind, t.Pre, t.Post)
		printBlock(w, t.Body, depth+1)
	case Routine:
		anc := make([]string, len(t.Ancillas))
		for i, a := range t.Ancillas {
			anc[i] = fmt.Sprintf("%s: %s", a.Name, a.Kind)
		}
		fmt.Fprintf(w, "%sroutine [%s]\n", ind, strings.Join(anc, ", "))
		fmt.Fprintf(w, "%scompute\n", ind)
		printBlock(w, t.Compute, depth+1)
		fmt.Fprintf(w, "%suse\n", ind)
		printBlock(w, t.Use, depth+1)
	case Call:
		fmt.Fprintf(w, "%scall %s(%s)\n", ind, t.Callee.Name, strings.Join(t.Args, ", "))
	}
}

func formatStmt(s Stmt) string {
	switch s.Op {
	case OpAdd, OpSub:
		sym := "+="
		if s.Op == OpSub {
			sym = "-="
		}
		return fmt.Sprintf("%s %s %s", s.Target, sym, formatFn(s))
	case OpMul:
		return fmt.Sprintf("%s *= %s", s.Target, s.A)
	case OpDiv:
		return fmt.Sprintf("%s /= %s", s.Target, s.A)
	case OpNeg:
		return fmt.Sprintf("%s = -%s", s.Target, s.Target)
	case OpSwap:
		return fmt.Sprintf("swap %s, %s", s.Target, s.A)
	case OpPush:
		return fmt.Sprintf("push! %s", s.Target)
	case OpPop:
		return fmt.Sprintf("pop! %s", s.Target)
	case OpToLog, OpUnToLog, OpFromLog, OpUnFromLog:
		return fmt.Sprintf("%s %s, %s", s.Op, s.Target, s.A)
	}
	return fmt.Sprintf("%s %s", s.Op, s.Target)
}

func formatFn(s Stmt) string {
	switch s.Fn {
	case FnIdentity:
		return s.A.String()
	case FnMul:
		return fmt.Sprintf("%s * %s", s.A, s.B)
	case FnDiv:
		return fmt.Sprintf("%s / %s", s.A, s.B)
	case FnSquare:
		return fmt.Sprintf("%s^2", s.A)
	case FnSqrt:
		return fmt.Sprintf("sqrt(%s)", s.A)
	}
	return string(s.Fn)
}
