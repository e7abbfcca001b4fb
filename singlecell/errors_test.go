package singlecell

import (
	"errors"
	"strings"
	"testing"

	"github.com/grailbio/testutil/expect"
)

func TestErrorKinds(t *testing.T) {
	err := configErrorf("bad knob %d", 7)
	expect.EQ(t, KindOf(err), KindConfig)
	expect.True(t, strings.Contains(err.Error(), "bad knob 7"))
	expect.True(t, errors.Is(err, &Error{Kind: KindConfig}))
	expect.False(t, errors.Is(err, &Error{Kind: KindShapeMismatch}))

	expect.EQ(t, KindOf(shapeErrorf("x")), KindShapeMismatch)
	expect.EQ(t, KindOf(degenerateErrorf("x")), KindDegenerate)
	expect.EQ(t, KindOf(errors.New("plain")), KindOther)
	expect.EQ(t, KindOf(nil), KindOther)
}

func TestStatsMerge(t *testing.T) {
	a := Stats{CellsIn: 10, CellsKept: 8, HVGSelected: 5, Clusters: 2}
	b := Stats{CellsIn: 3, GenesTested: 7}
	m := a.Merge(b)
	expect.EQ(t, m.CellsIn, 13)
	expect.EQ(t, m.CellsKept, 8)
	expect.EQ(t, m.HVGSelected, 5)
	expect.EQ(t, m.GenesTested, 7)
	expect.EQ(t, m.Clusters, 2)
}
