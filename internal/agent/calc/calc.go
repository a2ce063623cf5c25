// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package calc evaluates plain arithmetic over numeric literals.
//
// The grammar is closed: number literals, parentheses, unary + and -, and the
// binary operators + - * / // % **. Anything else (names, calls, attribute
// access, strings) is rejected while parsing, before any evaluation happens.
//
//	expr   := term (("+" | "-") term)*
//	term   := unary (("*" | "/" | "//" | "%") unary)*
//	unary  := ("+" | "-") unary | power
//	power  := atom ["**" unary]
//	atom   := NUMBER | "(" expr ")"
package calc

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidExpression wraps every parse and evaluation failure.
var ErrInvalidExpression = errors.New("invalid expression")

const maxDepth = 64

// Node is an arithmetic syntax tree node.
type Node interface {
	node()
}

// Num is a numeric literal.
type Num struct{ Value float64 }

// Unary is +x or -x.
type Unary struct {
	Op string
	X  Node
}

// Binary is x op y.
type Binary struct {
	Op   string
	X, Y Node
}

func (Num) node()    {}
func (Unary) node()  {}
func (Binary) node() {}

// Eval parses and evaluates expr.
func Eval(expr string) (float64, error) {
	n, err := Parse(expr)
	if err != nil {
		return 0, err
	}
	return Walk(n)
}

// Parse builds the syntax tree for expr.
func Parse(expr string) (Node, error) {
	toks, err := lex(expr)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	n, err := p.expr(0)
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, invalidf("unexpected %q at offset %d", p.peek().text, p.peek().pos)
	}
	return n, nil
}

// Walk evaluates a tree produced by Parse. Only Num, Unary and Binary nodes
// are accepted.
func Walk(n Node) (float64, error) {
	switch t := n.(type) {
	case Num:
		return t.Value, nil
	case Unary:
		x, err := Walk(t.X)
		if err != nil {
			return 0, err
		}
		if t.Op == "-" {
			return -x, nil
		}
		return x, nil
	case Binary:
		x, err := Walk(t.X)
		if err != nil {
			return 0, err
		}
		y, err := Walk(t.Y)
		if err != nil {
			return 0, err
		}
		return apply(t.Op, x, y)
	default:
		return 0, invalidf("unsupported node %T", n)
	}
}

func apply(op string, x, y float64) (float64, error) {
	var r float64
	switch op {
	case "+":
		r = x + y
	case "-":
		r = x - y
	case "*":
		r = x * y
	case "/":
		if y == 0 {
			return 0, invalidf("division by zero")
		}
		r = x / y
	case "//":
		if y == 0 {
			return 0, invalidf("integer division or modulo by zero")
		}
		r = math.Floor(x / y)
	case "%":
		if y == 0 {
			return 0, invalidf("integer division or modulo by zero")
		}
		// result takes the sign of the divisor
		r = x - y*math.Floor(x/y)
	case "**":
		if x == 0 && y < 0 {
			return 0, invalidf("zero cannot be raised to a negative power")
		}
		r = math.Pow(x, y)
	default:
		return 0, invalidf("unsupported operator %q", op)
	}
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return 0, invalidf("result out of range")
	}
	return r, nil
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidExpression, fmt.Sprintf(format, args...))
}

var fragment = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(\*\*|//|[-+*/%])\s*(\d+(?:\.\d+)?)`)

// FindExpression returns the first "<number><op><number>" fragment in text.
func FindExpression(text string) (string, bool) {
	m := fragment.FindString(text)
	return m, m != ""
}

var literal = regexp.MustCompile(`\d+(?:\.\d+)?`)

// FindNumber returns the first numeric literal in text.
func FindNumber(text string) (float64, bool) {
	m := literal.FindString(text)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	return v, err == nil
}

// Format renders v without a trailing ".0" for whole numbers.
func Format(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strings.TrimRight(strings.TrimRight(strconv.FormatFloat(v, 'f', 6, 64), "0"), ".")
}
