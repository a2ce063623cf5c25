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

package calc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEval(t *testing.T) {
	cases := []struct {
		expr string
		want float64
	}{
		{"8000*4", 32000},
		{" 8000 * 4 ", 32000},
		{"1+2*3", 7},
		{"(1+2)*3", 9},
		{"7/2", 3.5},
		{"7//2", 3},
		{"-7//2", -4},
		{"-7%3", 2},
		{"7%-3", -2},
		{"2**10", 1024},
		{"2**3**2", 512},
		{"-2**2", -4},
		{"2**-1", 0.5},
		{"+-+3", -3},
		{"1.5e3+0.5", 1500.5},
		{".5*4", 2},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			got, err := Eval(tc.expr)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestEval_Rejects(t *testing.T) {
	for _, expr := range []string{
		"__import__('os')",
		"os.system('ls')",
		"abs(-1)",
		"x+1",
		"'a'*3",
		"[1,2]",
		"1 +",
		"()",
		"(1+2",
		"1 2",
		"1/0",
		"5//0",
		"5%0",
		"0**-1",
		"10**400",
		"",
	} {
		t.Run(expr, func(t *testing.T) {
			_, err := Eval(expr)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidExpression)
		})
	}
}

func TestEval_NameErrorMessage(t *testing.T) {
	_, err := Eval("__import__('os')")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "names are not allowed")
}

func TestEval_DepthLimit(t *testing.T) {
	expr := ""
	for i := 0; i < 200; i++ {
		expr += "("
	}
	expr += "1"
	for i := 0; i < 200; i++ {
		expr += ")"
	}
	_, err := Eval(expr)
	assert.ErrorIs(t, err, ErrInvalidExpression)
}

func TestWalk_RejectsForeignNodes(t *testing.T) {
	type call struct{ Num }
	_, err := Walk(call{})
	assert.ErrorIs(t, err, ErrInvalidExpression)
}

func TestFindExpression(t *testing.T) {
	got, ok := FindExpression("update all rooms to price 8000*4 please")
	require.True(t, ok)
	assert.Equal(t, "8000*4", got)

	got, ok = FindExpression("Calculate 8000 * 4 = 32000")
	require.True(t, ok)
	assert.Equal(t, "8000 * 4", got)

	got, ok = FindExpression("split 100//3")
	require.True(t, ok)
	assert.Equal(t, "100//3", got)

	_, ok = FindExpression("list all rooms")
	assert.False(t, ok)
}

func TestFindNumberAndFormat(t *testing.T) {
	v, ok := FindNumber("Update each room price to 32000")
	require.True(t, ok)
	assert.Equal(t, 32000.0, v)
	_, ok = FindNumber("no digits")
	assert.False(t, ok)

	assert.Equal(t, "32000", Format(32000))
	assert.Equal(t, "3.5", Format(3.5))
	assert.Equal(t, "0.333333", Format(1.0/3))
}
