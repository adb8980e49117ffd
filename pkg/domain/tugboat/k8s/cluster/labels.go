package cluster

import (
	"sort"
	"strings"
)

// k8s label SelectorElement like EqualityBased or SetBased
type SelectorElement interface {
	// convert to querystring expression for label
	QueryString(label string) string

	// return true if this is equal to other. otherwise false.
	//
	// this method SHOULD return false when other is not same struct for itself.
	Equal(other SelectorElement) bool
}

type LabelSelector map[string]SelectorElement

// convert to string value in form of query string.
//
// Elements are sorted by label name, so the expression is deterministic.
func (ls LabelSelector) QueryString() string {
	if len(ls) == 0 {
		return ""
	}

	labels := make([]string, 0, len(ls))
	for l := range ls {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	terms := make([]string, 0, len(labels))
	for _, l := range labels {
		terms = append(terms, ls[l].QueryString(l))
	}
	return strings.Join(terms, ",")
}

// see: https://kubernetes.io/docs/concepts/overview/working-with-objects/labels/#equality-based-requirement
type EqualityBased string

var _ SelectorElement = EqualityBased("")

func Eq(value string) EqualityBased {
	_, v := EqualityBased(value).operands()
	return EqualityBased("=" + v)
}

func NotEq(value string) EqualityBased {
	_, v := EqualityBased(value).operands()
	return EqualityBased("!=" + v)
}

func (eqb EqualityBased) operands() (operator string, value string) {
	exp := string(eqb)
	switch {
	case strings.HasPrefix(exp, "=="):
		return "=", exp[2:]
	case strings.HasPrefix(exp, "!="):
		return "!=", exp[2:]
	case strings.HasPrefix(exp, "="):
		return "=", exp[1:]
	default:
		// note: "!value" does not mean "!=value".
		return "=", exp
	}
}

func (eqb EqualityBased) QueryString(label string) string {
	op, v := eqb.operands()
	return label + op + v
}

func (eqb EqualityBased) Equal(other SelectorElement) bool {
	switch o := other.(type) {
	case EqualityBased:
		op, v := eqb.operands()
		oop, ov := o.operands()
		return op == oop && v == ov
	default:
		return false
	}
}

func LabelsToSelector(ls map[string]string) LabelSelector {
	sel := LabelSelector{}
	for k, v := range ls {
		sel[k] = EqualityBased(v)
	}
	return sel
}
