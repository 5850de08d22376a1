package landmark

import (
	"fmt"
	"sort"
	"strings"
)

// Scheme fixes the cardinality of a landmark set and the indices of the
// eye contours inside it.
//
// Eye sextets are ordered outer corner, upper lid 1, upper lid 2,
// inner corner, lower lid 2, lower lid 1. Lid pairs are (upper, lower)
// points near the middle of the lid.
type Scheme struct {
	Name      string
	Points    int
	LeftEye   [6]int
	RightEye  [6]int
	LeftLids  [2]int
	RightLids [2]int
}

// IBUG68 is the 68-point iBUG/dlib layout
var IBUG68 = Scheme{
	Name:      "ibug68",
	Points:    68,
	LeftEye:   [6]int{36, 37, 38, 39, 40, 41},
	RightEye:  [6]int{42, 43, 44, 45, 46, 47},
	LeftLids:  [2]int{37, 41},
	RightLids: [2]int{43, 47},
}

// Mesh468 is the 468-point face mesh layout (478 with iris refinement)
var Mesh468 = Scheme{
	Name:      "mesh468",
	Points:    468,
	LeftEye:   [6]int{33, 160, 158, 133, 153, 144},
	RightEye:  [6]int{362, 385, 387, 263, 373, 380},
	LeftLids:  [2]int{159, 145},
	RightLids: [2]int{386, 374},
}

var schemes = map[string]Scheme{
	IBUG68.Name:  IBUG68,
	Mesh468.Name: Mesh468,
}

// Lookup returns the built-in scheme with the given name
func Lookup(name string) (Scheme, error) {
	s, ok := schemes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Scheme{}, fmt.Errorf("unknown landmark scheme %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return s, nil
}

// Names lists the built-in scheme names in sorted order
func Names() []string {
	names := make([]string, 0, len(schemes))
	for name := range schemes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s Scheme) eyeIndices(side Side) [6]int {
	if side == Right {
		return s.RightEye
	}
	return s.LeftEye
}
