package sim

import (
	"strconv"
	"strings"
)

// Named describes an object that has a name.
type Named interface {
	// Name returns the name of the object.
	Name() string
}

// NameMustBeValid panics if the name does not follow the naming convention.
// Names are dot-separated elements such as "Bus.Decoder[1]". Each element
// starts with a capital letter, does not contain "_", "-" or quotes, and may
// carry integer indices in square brackets.
func NameMustBeValid(name string) {
	for _, elem := range strings.Split(name, ".") {
		if err := elemError(elem); err != "" {
			panic("Name " + name + " is not valid: " + err)
		}
	}
}

func elemError(elem string) string {
	base, rest, hasIndex := strings.Cut(elem, "[")
	if base == "" {
		return "name element must not be empty"
	}

	if strings.ContainsAny(base, "_-\"'") {
		return "name element must not contain _, -, or quotes"
	}

	if base[0] < 'A' || base[0] > 'Z' {
		return "name element must start with a capital letter"
	}

	if !hasIndex {
		return ""
	}

	for _, idx := range strings.Split(rest, "[") {
		digits, ok := strings.CutSuffix(idx, "]")
		if !ok {
			return "name bracket must match"
		}

		if _, err := strconv.Atoi(digits); err != nil {
			return "name index must be integer"
		}
	}

	return ""
}

// BuildName builds a name from a parent name and an element name.
func BuildName(parentName, elementName string) string {
	if parentName == "" {
		return elementName
	}

	return parentName + "." + elementName
}

// BuildNameWithIndex builds a name from a parent name, an element name and an
// index.
func BuildNameWithIndex(parentName, elementName string, index int) string {
	return BuildName(parentName, elementName+"["+strconv.Itoa(index)+"]")
}
