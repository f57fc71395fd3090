package tools

import (
	"context"
	"fmt"
	"testing"

	"github.com/BaSui01/searchflow/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"
)

func stubTool(name, desc string) *Func {
	return &Func{
		ToolName:        name,
		ToolDescription: desc,
		Fn: func(ctx context.Context, query string) (string, error) {
			return name + ":" + query, nil
		},
	}
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	require.NoError(t, r.Register(stubTool("wikipedia", "encyclopedia")))

	tool, err := r.Resolve("wikipedia")
	require.NoError(t, err)
	out, err := tool.Invoke(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "wikipedia:go", out)
	assert.True(t, r.Has("wikipedia"))

	folded, err := r.Resolve("Wikipedia")
	require.NoError(t, err)
	assert.Same(t, tool, folded)
}

func TestRegistry_DuplicateName(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(stubTool("arxiv", "papers")))

	err := r.Register(stubTool("arxiv", "other"))
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrDuplicateTool))
	assert.True(t, types.IsErrorCode(r.Register(stubTool("ArXiv", "other")), types.ErrDuplicateTool))
	assert.Equal(t, 1, r.Len())

	d := r.DescribeAll()
	assert.Equal(t, "papers", d[0].Description, "first registration wins")
}

func TestRegistry_UnknownTool(t *testing.T) {
	r := NewRegistry(nil)
	tool, err := r.Resolve("nope")
	assert.Nil(t, tool)
	assert.True(t, types.IsErrorCode(err, types.ErrUnknownTool))
	assert.False(t, r.Has(""))
}

func TestRegistry_InvalidTool(t *testing.T) {
	r := NewRegistry(nil)
	assert.True(t, types.IsErrorCode(r.Register(nil), types.ErrInvalidRequest))
	assert.True(t, types.IsErrorCode(r.Register(stubTool("  ", "blank")), types.ErrInvalidRequest))
	assert.Panics(t, func() { r.MustRegister(stubTool("a", ""), stubTool("a", "")) })
}

func TestRegistry_Describe(t *testing.T) {
	r := NewRegistry(nil)
	r.MustRegister(
		stubTool("brave_search", "web"),
		stubTool("arxiv", "papers"),
		stubTool("wikipedia", "encyclopedia"),
	)

	assert.Equal(t, []string{"brave_search", "arxiv", "wikipedia"}, r.Names())
	assert.Equal(t, "brave_search: web\narxiv: papers\nwikipedia: encyclopedia", r.Describe())
	for _, s := range r.DescribeAll() {
		assert.JSONEq(t, string(types.QueryParameters), string(s.Parameters))
	}
}

// 属性: DescribeAll 的顺序始终等于注册顺序。
func TestProperty_RegistryOrderIsRegistrationOrder(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 30).Draw(rt, "n")
		perm := rapid.Permutation(rangeInts(n)).Draw(rt, "perm")

		r := NewRegistry(nil)
		want := make([]string, 0, n)
		for _, i := range perm {
			name := fmt.Sprintf("tool_%d", i)
			require.NoError(rt, r.Register(stubTool(name, "d")))
			want = append(want, name)
		}

		got := make([]string, 0, n)
		for _, s := range r.DescribeAll() {
			got = append(got, s.Name)
		}
		assert.Equal(rt, want, got)
		assert.Equal(rt, want, r.Names())
	})
}

func rangeInts(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
